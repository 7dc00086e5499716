package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.Refresh(true)
	m.Refresh(false)
	m.Refresh(false)
	m.Queued()
	m.Event("motion")

	if got := testutil.ToFloat64(m.refreshes.WithLabelValues("failure")); got != 2 {
		t.Fatalf("failure refreshes=%v want=2", got)
	}
	if got := testutil.ToFloat64(m.queued); got != 1 {
		t.Fatalf("queued=%v want=1", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `smartsec_realtime_events_total{kind="motion"} 1`) {
		t.Fatalf("missing events series in:\n%s", rec.Body.String())
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Refresh(true)
	m.Queued()
	m.ReconnectAttempt()
	m.Event("alarm")
	m.Notification("push", false)
	m.Connected(true)
}
