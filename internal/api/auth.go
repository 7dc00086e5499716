package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/smartsecurity/cli/internal/models"
)

var errMalformedAuth = errors.New("malformed auth response: missing tokens")

// Login authenticates with username and password
func (c *Client) Login(ctx context.Context, username, password string) (*models.AuthResponse, error) {
	c.log.Info("auth.login", "username", username)
	return c.authCall(ctx, "/auth/login", models.LoginRequest{
		Username:   username,
		Password:   password,
		DeviceMeta: c.meta,
	})
}

// Register creates an account and returns its first token pair
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	c.log.Info("auth.register", "username", req.Username, "email", req.Email)
	req.DeviceMeta = c.meta
	return c.authCall(ctx, "/auth/register", req)
}

// Refresh exchanges refreshToken for a new pair. Every failure is an *AuthError.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*models.AuthResponse, error) {
	resp, err := c.authCall(ctx, "/auth/refresh", models.RefreshRequest{
		RefreshToken: refreshToken,
		DeviceMeta:   c.meta,
	})
	if err != nil {
		return nil, &AuthError{Err: err}
	}
	return resp, nil
}

// CheckToken asks the backend whether accessToken is still valid.
// It never fails: any error reads as invalid.
func (c *Client) CheckToken(ctx context.Context, accessToken string) models.TokenCheck {
	if accessToken == "" {
		return models.TokenCheck{}
	}

	var out models.TokenCheck
	err := c.Do(ctx, &Request{Method: http.MethodPost, Path: "/auth/check-token", Body: struct{}{}, Token: accessToken}, &out)
	if err != nil {
		c.log.Info("auth.check_token.invalid", "err", err)
		return models.TokenCheck{}
	}
	return out
}

// Logout revokes refreshToken on the server
func (c *Client) Logout(ctx context.Context, refreshToken string) (*models.MessageResponse, error) {
	var out models.MessageResponse
	err := c.Do(ctx, &Request{
		Method: http.MethodPost,
		Path:   "/auth/logout",
		Body:   map[string]string{"refreshToken": refreshToken},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// LogoutAll revokes every session of the user owning accessToken
func (c *Client) LogoutAll(ctx context.Context, accessToken string) (*models.MessageResponse, error) {
	var out models.MessageResponse
	err := c.Do(ctx, &Request{
		Method: http.MethodPost,
		Path:   "/auth/logout-all",
		Body:   struct{}{},
		Token:  accessToken,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) authCall(ctx context.Context, path string, body interface{}) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body}, &out); err != nil {
		c.log.Warn("auth.call.fail", "path", path, "err", err)
		return nil, err
	}
	if out.AccessToken == "" || out.RefreshToken == "" {
		return nil, errMalformedAuth
	}
	return &out, nil
}
