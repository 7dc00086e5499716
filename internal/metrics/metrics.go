// Package metrics holds the client-side prometheus collectors.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector the client reports. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	refreshes      *prometheus.CounterVec
	queued         prometheus.Counter
	reconnects     prometheus.Counter
	events         *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	realtimeStatus prometheus.Gauge
}

// New registers the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smartsec",
			Name:      "token_refresh_total",
			Help:      "Token refresh cycles by result.",
		}, []string{"result"}),
		queued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "smartsec",
			Name:      "refresh_queued_requests_total",
			Help:      "Requests parked while a refresh was in flight.",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "smartsec",
			Name:      "realtime_reconnect_attempts_total",
			Help:      "Failed realtime connection attempts.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smartsec",
			Name:      "realtime_events_total",
			Help:      "Realtime frames delivered by channel kind.",
		}, []string{"kind"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smartsec",
			Name:      "notifications_total",
			Help:      "Routed events by surface and outcome.",
		}, []string{"surface", "result"}),
		realtimeStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "smartsec",
			Name:      "realtime_connected",
			Help:      "1 while the realtime channel is connected.",
		}),
	}

	m.registry.MustRegister(m.refreshes, m.queued, m.reconnects, m.events, m.notifications, m.realtimeStatus)
	return m
}

func (m *Metrics) Refresh(ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) Queued() {
	if m == nil {
		return
	}
	m.queued.Inc()
}

func (m *Metrics) ReconnectAttempt() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

func (m *Metrics) Event(kind string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind).Inc()
}

func (m *Metrics) Notification(surface string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.notifications.WithLabelValues(surface, result).Inc()
}

func (m *Metrics) Connected(up bool) {
	if m == nil {
		return
	}
	if up {
		m.realtimeStatus.Set(1)
		return
	}
	m.realtimeStatus.Set(0)
}

// Registry exposes the underlying registry (tests, custom handlers).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, log *slog.Logger, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics.listen", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
