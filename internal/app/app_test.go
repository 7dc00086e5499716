package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smartsecurity/cli/internal/config"
	"github.com/smartsecurity/cli/internal/logging"
	"github.com/smartsecurity/cli/internal/models"
	"github.com/smartsecurity/cli/internal/realtime"
)

func testConfig(t *testing.T, serverURL string) *config.Config {
	t.Helper()
	return &config.Config{
		Server:   config.ServerConfig{URL: serverURL, Timeout: "2s"},
		Realtime: config.RealtimeConfig{URL: serverURL, ReconnectAttempts: 2, ReconnectDelay: "10ms"},
		Storage:  config.StorageConfig{Dir: t.TempDir()},
		Device:   config.DeviceConfig{ID: "dev-1", Type: "cli"},
	}
}

func TestRequireSessionWithoutCredentials(t *testing.T) {
	a, err := New(testConfig(t, "http://127.0.0.1:1"), logging.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := a.RequireSession(context.Background()); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
}

func TestLoginPersistsAcrossInstances(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/auth/login":
			var req models.LoginRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.DeviceID != "dev-1" {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]string{"message": "missing device id"})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "a1",
				"refresh_token": "r1",
				"user":          models.User{ID: "u-1", Username: req.Username},
			})
		case "/auth/check-token":
			_ = json.NewEncoder(w).Encode(models.TokenCheck{Valid: r.Header.Get("Authorization") == "Bearer a1"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	first, err := New(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if res := first.Session.Login(context.Background(), "ana", "secret"); !res.Success {
		t.Fatalf("login failed: %s", res.Error)
	}

	second, err := New(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s, err := second.RequireSession(context.Background())
	if err != nil {
		t.Fatalf("RequireSession: %v", err)
	}
	if s.User == nil || s.User.Username != "ana" {
		t.Fatalf("restored user=%+v", s.User)
	}
}

func TestChannelUsesRealtimeSettings(t *testing.T) {
	a, err := New(testConfig(t, "http://127.0.0.1:1"), logging.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ch := a.Channel()
	if ch.State() != realtime.Disconnected {
		t.Fatalf("new channel state=%v", ch.State())
	}
}
