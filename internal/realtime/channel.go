// Package realtime keeps the per-user event connection alive and fans
// pushed frames out to typed subscriptions.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smartsecurity/cli/internal/metrics"
	"github.com/smartsecurity/cli/internal/models"
)

const (
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectDelay       = time.Second
)

// Channel kinds, combined with the user id into "<kind>:<userId>".
const (
	KindMotion = "motion"
	KindAlarm  = "alarm"
	KindDevice = "device"
	KindEvent  = "event"
)

var (
	// ErrNotBound is returned when subscribing with no user connected.
	ErrNotBound = errors.New("realtime channel is not bound to a user")
	// ErrEmptyUser is returned by Connect without a user id.
	ErrEmptyUser = errors.New("user id is required")
)

// State of the connection.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	}
	return "unknown"
}

// Options configures a Channel. Zero values fall back to the defaults.
type Options struct {
	Dialer               Dialer
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
	Logger               *slog.Logger
	Metrics              *metrics.Metrics
}

// Channel holds at most one live connection.
type Channel struct {
	dialer      Dialer
	maxAttempts int
	delay       time.Duration
	log         *slog.Logger
	metrics     *metrics.Metrics

	mu       sync.Mutex
	state    State
	userID   string
	attempts int
	gen      uint64
	cancel   context.CancelFunc
	subs     map[string][]*Subscription
	nextSub  uint64
	watchers map[uint64]func(State)
	nextW    uint64
}

// NewChannel builds a disconnected channel.
func NewChannel(opts Options) *Channel {
	if opts.MaxReconnectAttempts <= 0 {
		opts.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Channel{
		dialer:      opts.Dialer,
		maxAttempts: opts.MaxReconnectAttempts,
		delay:       opts.ReconnectDelay,
		log:         opts.Logger,
		metrics:     opts.Metrics,
		subs:        make(map[string][]*Subscription),
		watchers:    make(map[uint64]func(State)),
	}
}

// Connect binds the channel to userID and starts dialing in the background.
// It is a no-op while already bound to the same user; a different user
// replaces the current binding.
func (c *Channel) Connect(userID string) error {
	if userID == "" {
		return ErrEmptyUser
	}

	c.mu.Lock()
	if c.state != Disconnected {
		if c.userID == userID {
			c.mu.Unlock()
			return nil
		}
		c.teardownLocked()
	}

	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.userID = userID
	c.attempts = 0
	watchers := c.setStateLocked(Connecting)
	c.mu.Unlock()

	c.notify(watchers, Connecting)
	c.log.Info("realtime.connect", "user_id", userID)

	go c.run(ctx, gen, userID)
	return nil
}

// Disconnect tears down the connection, the user binding and every
// subscription. Calling it again is harmless.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	if c.state == Disconnected && c.userID == "" {
		c.mu.Unlock()
		return
	}
	userID := c.userID
	c.teardownLocked()
	watchers := c.setStateLocked(Disconnected)
	c.mu.Unlock()

	c.metrics.Connected(false)
	c.notify(watchers, Disconnected)
	c.log.Info("realtime.disconnect", "user_id", userID)
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempts returns the consecutive failed attempts since the last successful connection.
func (c *Channel) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// UserID returns the bound user, empty when disconnected.
func (c *Channel) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// OnStateChange registers fn for every state transition. The returned func removes it.
func (c *Channel) OnStateChange(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextW
	c.nextW++
	c.watchers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.watchers, id)
		c.mu.Unlock()
	}
}

// OnMotionEvent delivers motion:<userId> frames.
func (c *Channel) OnMotionEvent(fn func(models.Event)) (*Subscription, error) {
	return c.subscribe(KindMotion, func(raw json.RawMessage) error {
		var ev models.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			return err
		}
		fn(ev)
		return nil
	})
}

// OnAlarmStatus delivers alarm:<userId> frames.
func (c *Channel) OnAlarmStatus(fn func(models.AlarmStatus)) (*Subscription, error) {
	return c.subscribe(KindAlarm, func(raw json.RawMessage) error {
		var st models.AlarmStatus
		if err := json.Unmarshal(raw, &st); err != nil {
			return err
		}
		fn(st)
		return nil
	})
}

// OnDeviceStatus delivers device:<userId> frames.
func (c *Channel) OnDeviceStatus(fn func(models.DeviceStatus)) (*Subscription, error) {
	return c.subscribe(KindDevice, func(raw json.RawMessage) error {
		var st models.DeviceStatus
		if err := json.Unmarshal(raw, &st); err != nil {
			return err
		}
		fn(st)
		return nil
	})
}

// OnEvent delivers event:<userId> frames.
func (c *Channel) OnEvent(fn func(models.GenericEvent)) (*Subscription, error) {
	return c.subscribe(KindEvent, func(raw json.RawMessage) error {
		var ev models.GenericEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return err
		}
		fn(ev)
		return nil
	})
}

// Subscription is a registered listener on one channel name.
type Subscription struct {
	c       *Channel
	id      uint64
	kind    string
	name    string
	deliver func(json.RawMessage) error
	active  atomic.Bool
}

// Channel returns the wire name, e.g. "motion:42".
func (s *Subscription) Channel() string {
	return s.name
}

// Active reports whether the subscription still receives frames.
func (s *Subscription) Active() bool {
	return s.active.Load()
}

// Unsubscribe stops delivery. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if !s.active.CompareAndSwap(true, false) {
		return
	}
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	list := s.c.subs[s.name]
	for i, sub := range list {
		if sub == s {
			s.c.subs[s.name] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(s.c.subs[s.name]) == 0 {
		delete(s.c.subs, s.name)
	}
}

func (c *Channel) subscribe(kind string, deliver func(json.RawMessage) error) (*Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.userID == "" {
		return nil, ErrNotBound
	}
	c.nextSub++
	sub := &Subscription{
		c:       c,
		id:      c.nextSub,
		kind:    kind,
		name:    kind + ":" + c.userID,
		deliver: deliver,
	}
	sub.active.Store(true)
	c.subs[sub.name] = append(c.subs[sub.name], sub)
	return sub, nil
}

func (c *Channel) run(ctx context.Context, gen uint64, userID string) {
	for {
		conn, err := c.dialer.Dial(ctx, userID)
		if err == nil {
			if !c.connected(gen) {
				_ = conn.Close()
				return
			}
			err = c.readLoop(ctx, gen, conn)
			_ = conn.Close()
		}
		if ctx.Err() != nil {
			return
		}
		if !c.fail(gen, err) {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.delay):
		}
	}
}

func (c *Channel) readLoop(ctx context.Context, gen uint64, conn Conn) error {
	for {
		frame, err := conn.Read(ctx)
		if errors.Is(err, ErrMalformedFrame) {
			c.log.Warn("realtime.frame.skip", "err", err)
			continue
		}
		if err != nil {
			return err
		}
		c.dispatch(gen, frame)
	}
}

func (c *Channel) dispatch(gen uint64, frame Frame) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	subs := append([]*Subscription(nil), c.subs[frame.Event]...)
	c.mu.Unlock()

	if len(subs) == 0 {
		c.log.Debug("realtime.frame.unrouted", "event", frame.Event)
		return
	}
	c.metrics.Event(subs[0].kind)

	for _, sub := range subs {
		if !sub.Active() {
			continue
		}
		if err := sub.deliver(frame.Data); err != nil {
			c.log.Warn("realtime.frame.decode.fail", "event", frame.Event, "err", err)
			return
		}
	}
}

// connected reports false when gen was superseded while dialing.
func (c *Channel) connected(gen uint64) bool {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return false
	}
	c.attempts = 0
	userID := c.userID
	watchers := c.setStateLocked(Connected)
	c.mu.Unlock()

	c.metrics.Connected(true)
	c.notify(watchers, Connected)
	c.log.Info("realtime.connected", "user_id", userID)
	return true
}

// fail records a failed attempt and reports whether another one should follow.
func (c *Channel) fail(gen uint64, cause error) bool {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return false
	}
	c.attempts++
	attempts := c.attempts
	userID := c.userID

	if attempts >= c.maxAttempts {
		c.teardownLocked()
		watchers := c.setStateLocked(Disconnected)
		c.mu.Unlock()

		c.metrics.ReconnectAttempt()
		c.metrics.Connected(false)
		c.notify(watchers, Disconnected)
		c.log.Error("realtime.reconnect.exhausted", "user_id", userID, "attempts", attempts, "err", cause)
		return false
	}

	watchers := c.setStateLocked(Reconnecting)
	c.mu.Unlock()

	c.metrics.ReconnectAttempt()
	c.metrics.Connected(false)
	c.notify(watchers, Reconnecting)
	c.log.Warn("realtime.reconnect", "user_id", userID, "attempt", attempts, "max", c.maxAttempts, "err", cause)
	return true
}

// teardownLocked cancels the running loop and drops the binding; callers hold mu.
func (c *Channel) teardownLocked() {
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.userID = ""
	c.attempts = 0
	for name, list := range c.subs {
		for _, sub := range list {
			sub.active.Store(false)
		}
		delete(c.subs, name)
	}
}

// setStateLocked returns the watchers to notify once mu is released.
func (c *Channel) setStateLocked(s State) []func(State) {
	if c.state == s {
		return nil
	}
	c.state = s
	watchers := make([]func(State), 0, len(c.watchers))
	for _, w := range c.watchers {
		watchers = append(watchers, w)
	}
	return watchers
}

func (c *Channel) notify(watchers []func(State), s State) {
	for _, w := range watchers {
		w(s)
	}
}
