// Package session owns the in-memory authentication state of the client.
//
// The Controller is the only writer of tokens and user: it bootstraps from
// the credential store, validates or refreshes with the backend, and moves
// between unauthenticated and authenticated through its actions. Actions
// report failures in their Result instead of returning errors.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/smartsecurity/cli/internal/models"
	"github.com/smartsecurity/cli/internal/storage"
)

// Authenticator is the backend side of the session: validation, refresh and revocation.
type Authenticator interface {
	CheckToken(ctx context.Context, accessToken string) models.TokenCheck
	Refresh(ctx context.Context, refreshToken string) (*models.AuthResponse, error)
	Login(ctx context.Context, username, password string) (*models.AuthResponse, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Logout(ctx context.Context, refreshToken string) (*models.MessageResponse, error)
	LogoutAll(ctx context.Context, accessToken string) (*models.MessageResponse, error)
}

// Session is a snapshot of the authentication state.
type Session struct {
	User            *models.User
	AccessToken     string
	RefreshToken    string
	IsLoading       bool
	IsAuthenticated bool
}

// Result is returned by the actions that can fail.
type Result struct {
	Success bool
	User    *models.User
	Error   string
}

var (
	errNoRefreshToken = errors.New("no refresh token available")
	errNoUser         = errors.New("server returned no user")
)

// Controller serializes session transitions.
type Controller struct {
	log   *slog.Logger
	store storage.CredentialStore
	auth  Authenticator

	// actionMu serializes whole actions; mu guards state and listeners.
	actionMu sync.Mutex

	mu        sync.RWMutex
	state     Session
	listeners map[int]func(Session)
	nextID    int
}

// NewController starts in the bootstrapping state (IsLoading true).
func NewController(log *slog.Logger, store storage.CredentialStore, auth Authenticator) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		log:       log,
		store:     store,
		auth:      auth,
		state:     Session{IsLoading: true},
		listeners: make(map[int]func(Session)),
	}
}

// Session returns a copy of the current state.
func (c *Controller) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot()
}

// Subscribe registers fn to receive the state after every transition.
// The returned func removes the listener.
func (c *Controller) Subscribe(fn func(Session)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Bootstrap restores the session from storage, validating or refreshing the stored tokens.
func (c *Controller) Bootstrap(ctx context.Context) Session {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	c.update(func(s *Session) { s.IsLoading = true })

	creds := c.store.LoadAll()
	if creds.AccessToken == "" {
		c.log.Info("session.bootstrap", "result", "no_credentials")
		c.reset()
		return c.Session()
	}

	// A valid token only restores the session when the whole triple is usable.
	check := c.auth.CheckToken(ctx, creds.AccessToken)
	if user := pickUser(check.User, creds.User); check.Valid && user != nil && creds.RefreshToken != "" {
		c.log.Info("session.bootstrap", "result", "restored", "user_id", user.ID)
		c.set(Session{
			User:            user,
			AccessToken:     creds.AccessToken,
			RefreshToken:    creds.RefreshToken,
			IsAuthenticated: true,
		})
		return c.Session()
	}

	if creds.RefreshToken == "" {
		c.log.Info("session.bootstrap", "result", "expired_without_refresh")
		c.clearStore()
		c.reset()
		return c.Session()
	}

	resp, err := c.auth.Refresh(ctx, creds.RefreshToken)
	if err == nil && pickUser(resp.User, creds.User) == nil {
		err = errNoUser
	}
	if err == nil {
		err = c.store.SaveAll(resp.AccessToken, resp.RefreshToken, pickUser(resp.User, creds.User))
	}
	if err != nil {
		c.log.Warn("session.bootstrap", "result", "refresh_failed", "err", err)
		c.clearStore()
		c.reset()
		return c.Session()
	}

	c.log.Info("session.bootstrap", "result", "refreshed")
	c.set(authenticated(resp, creds.User))
	return c.Session()
}

// Login authenticates and persists the new session.
func (c *Controller) Login(ctx context.Context, username, password string) Result {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	resp, err := c.auth.Login(ctx, username, password)
	return c.establish(resp, err, "login")
}

// Register creates an account and signs in with it.
func (c *Controller) Register(ctx context.Context, req models.RegisterRequest) Result {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	resp, err := c.auth.Register(ctx, req)
	return c.establish(resp, err, "register")
}

func (c *Controller) establish(resp *models.AuthResponse, err error, op string) Result {
	if err == nil && resp.User == nil {
		err = errNoUser
	}
	if err == nil {
		err = c.store.SaveAll(resp.AccessToken, resp.RefreshToken, resp.User)
	}
	if err != nil {
		c.log.Warn("session."+op+".fail", "err", err)
		return Result{Error: err.Error()}
	}

	c.log.Info("session."+op, "user_id", resp.User.ID)
	c.set(authenticated(resp, nil))
	return Result{Success: true, User: resp.User}
}

// Logout revokes the refresh token when possible and always clears the local session.
func (c *Controller) Logout(ctx context.Context) {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	c.logout(ctx)
}

func (c *Controller) logout(ctx context.Context) {
	refreshToken := c.Session().RefreshToken
	if refreshToken == "" {
		c.log.Info("session.logout", "revoke", false)
	} else if _, err := c.auth.Logout(ctx, refreshToken); err != nil {
		c.log.Warn("session.logout.revoke.fail", "err", err)
	}

	c.clearStore()
	c.reset()
	c.log.Info("session.logout.done")
}

// LogoutAll revokes every session of the user, then clears the local one.
func (c *Controller) LogoutAll(ctx context.Context) {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	if accessToken := c.Session().AccessToken; accessToken != "" {
		if _, err := c.auth.LogoutAll(ctx, accessToken); err != nil {
			c.log.Warn("session.logout_all.revoke.fail", "err", err)
		}
	}

	c.clearStore()
	c.reset()
	c.log.Info("session.logout_all.done")
}

// RefreshAccessToken exchanges the refresh token; on failure the session is logged out.
func (c *Controller) RefreshAccessToken(ctx context.Context) Result {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	prev := c.Session()
	var (
		resp *models.AuthResponse
		err  = errNoRefreshToken
	)
	if prev.RefreshToken != "" {
		resp, err = c.auth.Refresh(ctx, prev.RefreshToken)
	}
	if err == nil && pickUser(resp.User, prev.User) == nil {
		err = errNoUser
	}
	if err == nil {
		err = c.store.SaveAll(resp.AccessToken, resp.RefreshToken, pickUser(resp.User, prev.User))
	}
	if err != nil {
		c.log.Warn("session.refresh.fail", "err", err)
		c.logout(ctx)
		return Result{Error: err.Error()}
	}

	next := authenticated(resp, prev.User)
	c.set(next)
	return Result{Success: true, User: next.User}
}

// UpdateUser persists a new profile without touching tokens.
func (c *Controller) UpdateUser(user *models.User) error {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	if user == nil {
		return errors.New("user is required")
	}
	if err := c.store.SaveUser(user); err != nil {
		return err
	}
	c.update(func(s *Session) { s.User = user })
	return nil
}

func (c *Controller) clearStore() {
	if err := c.store.ClearAll(); err != nil {
		c.log.Error("session.store.clear.fail", "err", err)
	}
}

func (c *Controller) reset() {
	c.set(Session{})
}

func (c *Controller) set(s Session) {
	c.update(func(cur *Session) { *cur = s })
}

func (c *Controller) update(fn func(*Session)) {
	c.mu.Lock()
	fn(&c.state)
	snap := c.snapshot()
	listeners := make([]func(Session), 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

// snapshot copies state; callers hold mu.
func (c *Controller) snapshot() Session {
	s := c.state
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

func authenticated(resp *models.AuthResponse, fallback *models.User) Session {
	return Session{
		User:            pickUser(resp.User, fallback),
		AccessToken:     resp.AccessToken,
		RefreshToken:    resp.RefreshToken,
		IsAuthenticated: true,
	}
}

func pickUser(primary, fallback *models.User) *models.User {
	if primary != nil {
		return primary
	}
	return fallback
}
