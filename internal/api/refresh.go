package api

import (
	"context"
	"errors"

	"github.com/smartsecurity/cli/internal/models"
	"github.com/smartsecurity/cli/internal/storage"
)

// ErrNoRefreshToken is returned when a refresh is needed but none is stored.
var ErrNoRefreshToken = errors.New("no refresh token available")

// AuthError reports a rejected or unreachable token refresh.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return "token refresh failed: " + e.Err.Error()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

type refreshOutcome struct {
	token string
	err   error
}

// awaitRefresh returns an access token to replay with after staleToken was rejected.
//
// The first caller runs the refresh; callers arriving while it is in flight
// wait in FIFO order and share its outcome. A caller whose token was already
// replaced by a finished cycle reuses the current token.
func (c *Client) awaitRefresh(ctx context.Context, staleToken string) (string, error) {
	c.mu.Lock()
	if c.refreshing {
		ch := make(chan refreshOutcome, 1)
		c.waiters = append(c.waiters, ch)
		queued := len(c.waiters)
		c.mu.Unlock()

		c.metrics.Queued()
		c.log.Debug("api.refresh.queued", "position", queued)

		select {
		case out := <-ch:
			return out.token, out.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	creds := c.store.LoadAll()
	if creds.AccessToken != "" && creds.AccessToken != staleToken {
		c.mu.Unlock()
		return creds.AccessToken, nil
	}

	c.refreshing = true
	c.mu.Unlock()

	// The cycle is shared, so one caller giving up must not cancel it for the rest.
	token, err := c.runRefresh(context.WithoutCancel(ctx), creds)
	c.settle(token, err)
	return token, err
}

func (c *Client) runRefresh(ctx context.Context, prev storage.Credentials) (string, error) {
	c.log.Info("api.refresh.start")

	var err error
	if prev.RefreshToken == "" {
		err = &AuthError{Err: ErrNoRefreshToken}
	} else {
		var resp *models.AuthResponse
		resp, err = c.refresh(ctx, prev.RefreshToken)
		if err == nil {
			user := resp.User
			if user == nil {
				user = prev.User
			}
			if err = c.store.SaveAll(resp.AccessToken, resp.RefreshToken, user); err == nil {
				c.metrics.Refresh(true)
				c.log.Info("api.refresh.ok")
				return resp.AccessToken, nil
			}
		}
	}

	c.metrics.Refresh(false)
	c.log.Warn("api.refresh.fail", "err", err)
	if clearErr := c.store.ClearAll(); clearErr != nil {
		c.log.Error("api.refresh.clear.fail", "err", clearErr)
	}
	return "", err
}

// settle clears the in-flight flag, then releases every waiter with the same outcome.
func (c *Client) settle(token string, err error) {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.refreshing = false
	c.mu.Unlock()

	for _, ch := range waiters {
		ch <- refreshOutcome{token: token, err: err}
	}
}
