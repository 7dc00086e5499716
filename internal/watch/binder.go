// Package watch keeps the realtime channel bound to whoever is signed in
// and routes their motion events to the notification router.
package watch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/smartsecurity/cli/internal/models"
	"github.com/smartsecurity/cli/internal/notify"
	"github.com/smartsecurity/cli/internal/realtime"
	"github.com/smartsecurity/cli/internal/session"
)

// Sessions is the part of the session controller the binder follows.
type Sessions interface {
	Session() session.Session
	Subscribe(fn func(session.Session)) func()
}

// Channel is the part of the realtime channel the binder drives.
type Channel interface {
	Connect(userID string) error
	Disconnect()
	UserID() string
	OnMotionEvent(fn func(models.Event)) (*realtime.Subscription, error)
}

// Router receives every motion event of the bound user.
type Router interface {
	Handle(ctx context.Context, ev models.Event) notify.Outcome
}

// Binder connects on sign-in and disconnects on sign-out or user switch.
type Binder struct {
	ctx      context.Context
	log      *slog.Logger
	sessions Sessions
	channel  Channel
	router   Router

	mu          sync.Mutex
	userID      string
	closed      bool
	unsubscribe func()
}

// Bind applies the current session immediately and then follows every transition.
func Bind(ctx context.Context, log *slog.Logger, sessions Sessions, channel Channel, router Router) *Binder {
	if log == nil {
		log = slog.Default()
	}
	b := &Binder{
		ctx:      ctx,
		log:      log,
		sessions: sessions,
		channel:  channel,
		router:   router,
	}

	unsubscribe := sessions.Subscribe(b.apply)
	b.mu.Lock()
	b.unsubscribe = unsubscribe
	b.mu.Unlock()

	b.apply(sessions.Session())
	return b
}

// UserID returns the user the channel is bound to, if any.
func (b *Binder) UserID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.userID
}

// Close stops following the session and drops the connection.
func (b *Binder) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	unsubscribe := b.unsubscribe
	bound := b.userID != ""
	b.userID = ""
	b.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if bound {
		b.channel.Disconnect()
	}
}

func (b *Binder) apply(s session.Session) {
	var next string
	if s.IsAuthenticated && s.User != nil {
		next = s.User.ID
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	// The channel clears its user once reconnects are exhausted; the next
	// update for the same user binds it again.
	if next == b.userID && (next == "" || b.channel.UserID() == next) {
		return
	}

	if b.userID != "" {
		b.log.Info("watch.unbind", "user_id", b.userID)
		b.channel.Disconnect()
		b.userID = ""
	}
	if next == "" {
		return
	}

	if err := b.channel.Connect(next); err != nil {
		b.log.Error("watch.connect.fail", "user_id", next, "err", err)
		return
	}
	if _, err := b.channel.OnMotionEvent(b.handler(next)); err != nil {
		b.log.Error("watch.subscribe.fail", "user_id", next, "err", err)
		b.channel.Disconnect()
		return
	}
	b.userID = next
	b.log.Info("watch.bind", "user_id", next)
}

// handler drops events that are not addressed to userID or arrive after a switch.
func (b *Binder) handler(userID string) func(models.Event) {
	return func(ev models.Event) {
		if ev.UserID != "" && ev.UserID != userID {
			b.log.Warn("watch.event.foreign", "event_id", ev.ID, "user_id", ev.UserID)
			return
		}
		if b.UserID() != userID {
			return
		}
		b.router.Handle(b.ctx, ev)
	}
}
