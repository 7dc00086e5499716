// Package app wires the stores, the HTTP pipeline and the session
// controller from the loaded configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/smartsecurity/cli/internal/api"
	"github.com/smartsecurity/cli/internal/config"
	"github.com/smartsecurity/cli/internal/logging"
	"github.com/smartsecurity/cli/internal/metrics"
	"github.com/smartsecurity/cli/internal/models"
	"github.com/smartsecurity/cli/internal/realtime"
	"github.com/smartsecurity/cli/internal/session"
	"github.com/smartsecurity/cli/internal/storage"
)

// ErrNotLoggedIn is returned by RequireSession when no usable session could be restored.
var ErrNotLoggedIn = errors.New("not logged in, run 'smartsec auth login' first")

// App holds the long-lived collaborators of one CLI invocation.
type App struct {
	Config  *config.Config
	Log     *slog.Logger
	Metrics *metrics.Metrics
	Store   *storage.FileStore
	Modes   *storage.DeviceModes
	Client  *api.Client
	Session *session.Controller
}

// New builds the collaborators; nothing touches the network yet.
func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	store, err := storage.NewFileStore(log, cfg.Storage.Dir)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}
	modes, err := storage.NewDeviceModes(log, cfg.Storage.Dir)
	if err != nil {
		return nil, fmt.Errorf("open device mode store: %w", err)
	}

	m := metrics.New()
	client := api.NewClient(api.Options{
		BaseURL: cfg.Server.URL,
		Timeout: cfg.Timeout(),
		Store:   store,
		Meta:    models.DeviceMeta{DeviceID: cfg.Device.ID, DeviceType: cfg.Device.Type},
		Logger:  log,
		Metrics: m,
	})

	return &App{
		Config:  cfg,
		Log:     log,
		Metrics: m,
		Store:   store,
		Modes:   modes,
		Client:  client,
		Session: session.NewController(log, store, client),
	}, nil
}

// Load builds an App from the global configuration with the configured logger.
func Load() (*App, error) {
	cfg := config.Get()
	return New(cfg, logging.New(cfg.Log.Level, config.IsDebug()))
}

// LoggedIn is Load followed by RequireSession.
func LoggedIn(ctx context.Context) (*App, error) {
	a, err := Load()
	if err != nil {
		return nil, err
	}
	if _, err := a.RequireSession(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// RequireSession bootstraps the controller and fails unless it ends authenticated.
func (a *App) RequireSession(ctx context.Context) (session.Session, error) {
	s := a.Session.Bootstrap(ctx)
	if !s.IsAuthenticated {
		return s, ErrNotLoggedIn
	}
	return s, nil
}

// Channel builds the realtime channel from the realtime.* settings.
func (a *App) Channel() *realtime.Channel {
	return realtime.NewChannel(realtime.Options{
		Dialer:               realtime.WSDialer{URL: a.Config.Realtime.URL},
		MaxReconnectAttempts: a.Config.Realtime.ReconnectAttempts,
		ReconnectDelay:       a.Config.ReconnectDelay(),
		Logger:               a.Log,
		Metrics:              a.Metrics,
	})
}
