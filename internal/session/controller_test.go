package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/smartsecurity/cli/internal/logging"
	"github.com/smartsecurity/cli/internal/models"
	"github.com/smartsecurity/cli/internal/storage"
	"github.com/smartsecurity/cli/internal/utils"
)

type fakeAuth struct {
	mu sync.Mutex

	validTokens map[string]*models.User
	refreshResp *models.AuthResponse
	refreshErr  error
	loginResp   *models.AuthResponse
	loginErr    error
	logoutErr   error

	refreshCalls   int
	logoutCalls    []string
	logoutAllCalls []string
}

func (f *fakeAuth) CheckToken(_ context.Context, token string) models.TokenCheck {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.validTokens[token]; ok {
		return models.TokenCheck{Valid: true, User: u}
	}
	return models.TokenCheck{}
}

func (f *fakeAuth) Refresh(context.Context, string) (*models.AuthResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	return f.refreshResp, f.refreshErr
}

func (f *fakeAuth) Login(context.Context, string, string) (*models.AuthResponse, error) {
	return f.loginResp, f.loginErr
}

func (f *fakeAuth) Register(context.Context, models.RegisterRequest) (*models.AuthResponse, error) {
	return f.loginResp, f.loginErr
}

func (f *fakeAuth) Logout(_ context.Context, refreshToken string) (*models.MessageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls = append(f.logoutCalls, refreshToken)
	return &models.MessageResponse{}, f.logoutErr
}

func (f *fakeAuth) LogoutAll(_ context.Context, accessToken string) (*models.MessageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutAllCalls = append(f.logoutAllCalls, accessToken)
	return &models.MessageResponse{}, f.logoutErr
}

var (
	ana    = &models.User{ID: "u-1", Username: "ana"}
	anaNew = &models.User{ID: "u-1", Username: "ana", FirstName: "Ana"}
)

func newController(store storage.CredentialStore, auth Authenticator) *Controller {
	return NewController(logging.Discard(), store, auth)
}

func assertEmpty(t *testing.T, store storage.CredentialStore) {
	t.Helper()
	if c := store.LoadAll(); c.AccessToken != "" || c.RefreshToken != "" || c.User != nil {
		t.Fatalf("store not cleared: %+v", c)
	}
}

func TestBootstrapEmptyStore(t *testing.T) {
	auth := &fakeAuth{}
	c := newController(storage.NewMemoryStore(storage.Credentials{}), auth)

	if !c.Session().IsLoading {
		t.Fatalf("controller should start loading")
	}
	s := c.Bootstrap(context.Background())
	if s.IsAuthenticated || s.IsLoading {
		t.Fatalf("unexpected state: %+v", s)
	}
	if auth.refreshCalls != 0 {
		t.Fatalf("refresh called on empty store")
	}
}

func TestBootstrapValidToken(t *testing.T) {
	auth := &fakeAuth{validTokens: map[string]*models.User{"a1": nil}}
	store := storage.NewMemoryStore(storage.Credentials{AccessToken: "a1", RefreshToken: "r1", User: ana})
	c := newController(store, auth)

	s := c.Bootstrap(context.Background())
	if !s.IsAuthenticated || s.IsLoading || s.User == nil || s.User.ID != "u-1" {
		t.Fatalf("unexpected state: %+v", s)
	}
	if auth.refreshCalls != 0 {
		t.Fatalf("refresh calls=%d want=0", auth.refreshCalls)
	}
}

func TestBootstrapExpiredTokenRefreshes(t *testing.T) {
	auth := &fakeAuth{refreshResp: &models.AuthResponse{
		TokenPair: models.TokenPair{AccessToken: "a2", RefreshToken: "r2"},
		User:      anaNew,
	}}
	store := storage.NewMemoryStore(storage.Credentials{AccessToken: "a1", RefreshToken: "r1", User: ana})
	c := newController(store, auth)

	s := c.Bootstrap(context.Background())
	if !s.IsAuthenticated || s.AccessToken != "a2" || s.RefreshToken != "r2" || s.User.FirstName != "Ana" {
		t.Fatalf("unexpected state: %+v", s)
	}
	if auth.refreshCalls != 1 {
		t.Fatalf("refresh calls=%d want=1", auth.refreshCalls)
	}
	if creds := store.LoadAll(); creds.AccessToken != "a2" || creds.RefreshToken != "r2" {
		t.Fatalf("new tokens not persisted: %+v", creds)
	}
}

func TestBootstrapExpiredTokenWithoutUsableRefresh(t *testing.T) {
	cases := []struct {
		name  string
		creds storage.Credentials
		auth  *fakeAuth
		calls int
	}{
		{
			name:  "refresh rejected",
			creds: storage.Credentials{AccessToken: "a1", RefreshToken: "bad", User: ana},
			auth:  &fakeAuth{refreshErr: errors.New("invalid refresh token")},
			calls: 1,
		},
		{
			name:  "no refresh token",
			creds: storage.Credentials{AccessToken: "a1", User: ana},
			auth:  &fakeAuth{},
			calls: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := storage.NewMemoryStore(tc.creds)
			c := newController(store, tc.auth)

			s := c.Bootstrap(context.Background())
			if s.IsAuthenticated || s.IsLoading || s.User != nil {
				t.Fatalf("unexpected state: %+v", s)
			}
			if tc.auth.refreshCalls != tc.calls {
				t.Fatalf("refresh calls=%d want=%d", tc.auth.refreshCalls, tc.calls)
			}
			assertEmpty(t, store)
		})
	}
}

func TestLoginSuccessAndFailure(t *testing.T) {
	store := storage.NewMemoryStore(storage.Credentials{})
	auth := &fakeAuth{loginErr: utils.NewAPIError(401, "Invalid credentials")}
	c := newController(store, auth)
	c.Bootstrap(context.Background())

	res := c.Login(context.Background(), "ana", "wrong")
	if res.Success || res.Error != "Invalid credentials (status 401)" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if c.Session().IsAuthenticated {
		t.Fatalf("failed login changed state")
	}
	assertEmpty(t, store)

	auth.loginErr = nil
	auth.loginResp = &models.AuthResponse{TokenPair: models.TokenPair{AccessToken: "a1", RefreshToken: "r1"}, User: ana}
	res = c.Login(context.Background(), "ana", "secret")
	if !res.Success || res.User.ID != "u-1" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if s := c.Session(); !s.IsAuthenticated || s.AccessToken != "a1" {
		t.Fatalf("unexpected state: %+v", s)
	}
	if creds := store.LoadAll(); creds.AccessToken != "a1" || creds.User == nil {
		t.Fatalf("login not persisted: %+v", creds)
	}
}

func TestLoginStorageFailureLeavesStateUnchanged(t *testing.T) {
	store := storage.NewMemoryStore(storage.Credentials{})
	store.SaveErr = errors.New("disk full")
	auth := &fakeAuth{loginResp: &models.AuthResponse{TokenPair: models.TokenPair{AccessToken: "a1", RefreshToken: "r1"}, User: ana}}
	c := newController(store, auth)
	c.Bootstrap(context.Background())

	res := c.Register(context.Background(), models.RegisterRequest{Username: "ana"})
	if res.Success || res.Error != "disk full" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if c.Session().IsAuthenticated {
		t.Fatalf("state changed after failed write")
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	store := storage.NewMemoryStore(storage.Credentials{AccessToken: "a1", RefreshToken: "r1", User: ana})
	auth := &fakeAuth{validTokens: map[string]*models.User{"a1": ana}, logoutErr: utils.NewNetworkError(errors.New("offline"))}
	c := newController(store, auth)
	c.Bootstrap(context.Background())

	c.Logout(context.Background())
	first := c.Session()
	c.Logout(context.Background())
	second := c.Session()

	if first != second || first.IsAuthenticated || first.IsLoading {
		t.Fatalf("logout not idempotent: %+v vs %+v", first, second)
	}
	assertEmpty(t, store)
	if len(auth.logoutCalls) != 1 || auth.logoutCalls[0] != "r1" {
		t.Fatalf("revoke calls=%v want=[r1]", auth.logoutCalls)
	}
}

func TestLogoutAllUsesAccessToken(t *testing.T) {
	store := storage.NewMemoryStore(storage.Credentials{AccessToken: "a1", RefreshToken: "r1", User: ana})
	auth := &fakeAuth{validTokens: map[string]*models.User{"a1": ana}}
	c := newController(store, auth)
	c.Bootstrap(context.Background())

	c.LogoutAll(context.Background())
	if c.Session().IsAuthenticated {
		t.Fatalf("still authenticated")
	}
	if len(auth.logoutAllCalls) != 1 || auth.logoutAllCalls[0] != "a1" {
		t.Fatalf("logout-all calls=%v", auth.logoutAllCalls)
	}
	assertEmpty(t, store)
}

func TestRefreshAccessTokenFailureLogsOut(t *testing.T) {
	store := storage.NewMemoryStore(storage.Credentials{AccessToken: "a1", RefreshToken: "r1", User: ana})
	auth := &fakeAuth{validTokens: map[string]*models.User{"a1": ana}, refreshErr: errors.New("revoked")}
	c := newController(store, auth)
	c.Bootstrap(context.Background())

	res := c.RefreshAccessToken(context.Background())
	if res.Success || res.Error != "revoked" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if c.Session().IsAuthenticated {
		t.Fatalf("still authenticated after failed refresh")
	}
	assertEmpty(t, store)
}

func TestRefreshAccessTokenSuccessKeepsUser(t *testing.T) {
	store := storage.NewMemoryStore(storage.Credentials{AccessToken: "a1", RefreshToken: "r1", User: ana})
	auth := &fakeAuth{
		validTokens: map[string]*models.User{"a1": ana},
		refreshResp: &models.AuthResponse{TokenPair: models.TokenPair{AccessToken: "a2", RefreshToken: "r2"}},
	}
	c := newController(store, auth)
	c.Bootstrap(context.Background())

	res := c.RefreshAccessToken(context.Background())
	if !res.Success || res.User == nil || res.User.ID != "u-1" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if s := c.Session(); s.AccessToken != "a2" || !s.IsAuthenticated {
		t.Fatalf("unexpected state: %+v", s)
	}
}

func TestUpdateUserKeepsTokens(t *testing.T) {
	store := storage.NewMemoryStore(storage.Credentials{AccessToken: "a1", RefreshToken: "r1", User: ana})
	auth := &fakeAuth{validTokens: map[string]*models.User{"a1": nil}}
	c := newController(store, auth)
	c.Bootstrap(context.Background())

	if err := c.UpdateUser(anaNew); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	s := c.Session()
	if s.User.FirstName != "Ana" || s.AccessToken != "a1" || s.RefreshToken != "r1" {
		t.Fatalf("unexpected state: %+v", s)
	}

	store.SaveErr = errors.New("disk full")
	if err := c.UpdateUser(ana); err == nil {
		t.Fatalf("expected write failure to propagate")
	}
	if c.Session().User.FirstName != "Ana" {
		t.Fatalf("in-memory user changed after failed write")
	}
}

func TestSubscribeReceivesTransitions(t *testing.T) {
	store := storage.NewMemoryStore(storage.Credentials{})
	auth := &fakeAuth{loginResp: &models.AuthResponse{TokenPair: models.TokenPair{AccessToken: "a1", RefreshToken: "r1"}, User: ana}}
	c := newController(store, auth)

	var seen []bool
	unsubscribe := c.Subscribe(func(s Session) { seen = append(seen, s.IsAuthenticated) })
	c.Bootstrap(context.Background())
	c.Login(context.Background(), "ana", "secret")
	unsubscribe()
	c.Logout(context.Background())

	if len(seen) == 0 || !seen[len(seen)-1] {
		t.Fatalf("expected last observed state to be authenticated, got %v", seen)
	}
}

func TestRefreshWithoutAnyUserFails(t *testing.T) {
	noUser := &models.AuthResponse{TokenPair: models.TokenPair{AccessToken: "a2", RefreshToken: "r2"}}

	t.Run("bootstrap", func(t *testing.T) {
		store := storage.NewMemoryStore(storage.Credentials{AccessToken: "a1", RefreshToken: "r1"})
		c := newController(store, &fakeAuth{refreshResp: noUser})

		s := c.Bootstrap(context.Background())
		if s.IsAuthenticated || s.User != nil {
			t.Fatalf("authenticated without a user: %+v", s)
		}
		assertEmpty(t, store)
	})

	t.Run("manual", func(t *testing.T) {
		store := storage.NewMemoryStore(storage.Credentials{})
		c := newController(store, &fakeAuth{refreshResp: noUser})
		c.set(Session{AccessToken: "a1", RefreshToken: "r1"})

		res := c.RefreshAccessToken(context.Background())
		if res.Success || res.Error != errNoUser.Error() {
			t.Fatalf("unexpected result: %+v", res)
		}
		if s := c.Session(); s.IsAuthenticated || s.User != nil {
			t.Fatalf("authenticated without a user: %+v", s)
		}
		assertEmpty(t, store)
	})
}
