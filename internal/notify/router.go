// Package notify decides how a realtime event reaches the user: an in-app
// alert while the client is in the foreground, a scheduled system
// notification plus a badge bump otherwise.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/smartsecurity/cli/internal/metrics"
	"github.com/smartsecurity/cli/internal/models"
)

// AppState is the lifecycle state of the client process.
type AppState string

const (
	Foreground AppState = "active"
	Background AppState = "background"
	Inactive   AppState = "inactive"
)

// ParseAppState accepts the state names and "foreground" as an alias of active.
func ParseAppState(s string) (AppState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active", "foreground":
		return Foreground, nil
	case "background":
		return Background, nil
	case "inactive":
		return Inactive, nil
	}
	return "", fmt.Errorf("invalid app state %q (want active, background or inactive)", s)
}

// InForeground reports whether alerts are shown in-app.
func (s AppState) InForeground() bool {
	return s == Foreground
}

const (
	AlarmChannel    = "alarm"
	PriorityMax     = "max"
	DetailScreen    = "device-detail"
	DefaultFeedSize = 50
)

// AlarmVibration is the vibration pattern of alarm notifications, in milliseconds.
var AlarmVibration = []int64{0, 250, 250, 250}

// NotificationData is the payload the notification opens with.
type NotificationData struct {
	Type       string `json:"type"`
	DeviceMac  string `json:"deviceMac"`
	DeviceName string `json:"deviceName"`
	Screen     string `json:"screen"`
}

// Notification is a system notification ready to schedule.
type Notification struct {
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	Data      NotificationData `json:"data"`
	ChannelID string           `json:"channelId"`
	Priority  string           `json:"priority"`
	Vibration []int64          `json:"vibrate"`
}

// Alert is an in-app alert.
type Alert struct {
	Title   string
	Message string
	Event   models.Event
}

// Alerter shows in-app alerts.
type Alerter interface {
	Alert(ctx context.Context, a Alert) error
}

// Scheduler schedules system notifications and owns the badge counter.
type Scheduler interface {
	Schedule(ctx context.Context, n Notification) error
	BadgeCount(ctx context.Context) (int, error)
	SetBadgeCount(ctx context.Context, n int) error
}

// Surface is where a routed event ended up.
type Surface string

const (
	SurfaceAlert Surface = "alert"
	SurfacePush  Surface = "push"
)

// Outcome describes one Route call. Err is the swallowed delivery failure, if any.
type Outcome struct {
	Surface Surface
	Err     error
}

// Router routes events according to the tracked app state.
type Router struct {
	log       *slog.Logger
	alerter   Alerter
	scheduler Scheduler
	metrics   *metrics.Metrics
	feedSize  int

	mu       sync.Mutex
	appState AppState
	feed     []models.Event
}

// Options configures a Router.
type Options struct {
	Alerter   Alerter
	Scheduler Scheduler
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	FeedSize  int
	AppState  AppState
}

// NewRouter starts in the foreground unless opts.AppState says otherwise.
func NewRouter(opts Options) *Router {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.FeedSize <= 0 {
		opts.FeedSize = DefaultFeedSize
	}
	if opts.AppState == "" {
		opts.AppState = Foreground
	}
	return &Router{
		log:       opts.Logger,
		alerter:   opts.Alerter,
		scheduler: opts.Scheduler,
		metrics:   opts.Metrics,
		feedSize:  opts.FeedSize,
		appState:  opts.AppState,
	}
}

// AppState returns the tracked state.
func (r *Router) AppState() AppState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.appState
}

// SetAppState records a lifecycle transition. Returning to the foreground clears the badge.
func (r *Router) SetAppState(ctx context.Context, next AppState) {
	r.mu.Lock()
	prev := r.appState
	r.appState = next
	r.mu.Unlock()

	if prev == next {
		return
	}
	r.log.Info("notify.app_state", "from", string(prev), "to", string(next))

	if !prev.InForeground() && next.InForeground() && r.scheduler != nil {
		if err := r.scheduler.SetBadgeCount(ctx, 0); err != nil {
			r.log.Warn("notify.badge.clear.fail", "err", err)
		}
	}
}

// Handle routes ev using the tracked app state.
func (r *Router) Handle(ctx context.Context, ev models.Event) Outcome {
	return r.Route(ctx, ev, r.AppState())
}

// Route surfaces ev once: in-app when state is the foreground, as a scheduled
// notification otherwise. Delivery failures are logged, never returned.
func (r *Router) Route(ctx context.Context, ev models.Event, state AppState) Outcome {
	r.remember(ev)

	if state.InForeground() {
		out := Outcome{Surface: SurfaceAlert}
		if r.alerter != nil {
			out.Err = r.alerter.Alert(ctx, alertFor(ev))
		}
		r.finish(ev, out)
		return out
	}

	out := Outcome{Surface: SurfacePush}
	if r.scheduler != nil {
		out.Err = r.push(ctx, ev)
	}
	r.finish(ev, out)
	return out
}

func (r *Router) push(ctx context.Context, ev models.Event) error {
	if err := r.scheduler.Schedule(ctx, NotificationFor(ev)); err != nil {
		return fmt.Errorf("schedule notification: %w", err)
	}
	badge, err := r.scheduler.BadgeCount(ctx)
	if err != nil {
		return fmt.Errorf("read badge: %w", err)
	}
	if err := r.scheduler.SetBadgeCount(ctx, badge+1); err != nil {
		return fmt.Errorf("set badge: %w", err)
	}
	return nil
}

func (r *Router) finish(ev models.Event, out Outcome) {
	r.metrics.Notification(string(out.Surface), out.Err == nil)
	if out.Err != nil {
		r.log.Error("notify.route.fail", "surface", string(out.Surface), "event_id", ev.ID, "err", out.Err)
		return
	}
	r.log.Info("notify.route", "surface", string(out.Surface), "event_id", ev.ID, "event_type", string(ev.EventType))
}

// Feed returns the routed events, newest first.
func (r *Router) Feed() []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Event, len(r.feed))
	for i, ev := range r.feed {
		out[len(r.feed)-1-i] = ev
	}
	return out
}

func (r *Router) remember(ev models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feed = append(r.feed, ev)
	if over := len(r.feed) - r.feedSize; over > 0 {
		r.feed = append(r.feed[:0:0], r.feed[over:]...)
	}
}

// NotificationFor builds the system notification for ev.
func NotificationFor(ev models.Event) Notification {
	name := ev.DeviceName()
	title, body := describe(ev, name)
	return Notification{
		Title: title,
		Body:  body,
		Data: NotificationData{
			Type:       "alarm",
			DeviceMac:  ev.DeviceMac,
			DeviceName: name,
			Screen:     DetailScreen,
		},
		ChannelID: AlarmChannel,
		Priority:  PriorityMax,
		Vibration: append([]int64(nil), AlarmVibration...),
	}
}

func alertFor(ev models.Event) Alert {
	title, body := describe(ev, ev.DeviceName())
	return Alert{Title: title, Message: body, Event: ev}
}

func describe(ev models.Event, name string) (string, string) {
	switch v := ev.Variant().(type) {
	case models.DeviceConnectivity:
		if v.Online {
			return "Device online", name + " is back online"
		}
		return "Device offline", name + " went offline"
	case models.DeviceArming:
		if v.Armed {
			return "Device armed", name + " was armed"
		}
		return "Device disarmed", name + " was disarmed"
	}
	return "Alarm triggered", "Motion detected on " + name
}
