package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/smartsecurity/cli/internal/metrics"
	"github.com/smartsecurity/cli/internal/models"
	"github.com/smartsecurity/cli/internal/storage"
	"github.com/smartsecurity/cli/internal/utils"
)

const maxResponseBytes = 4 << 20

// Paths that never trigger a refresh-and-retry; a 401 from them is final.
var noRefreshPaths = map[string]bool{
	"/auth/login":       true,
	"/auth/register":    true,
	"/auth/refresh":     true,
	"/auth/check-token": true,
}

// Client is the HTTP pipeline every backend call goes through.
//
// It attaches the stored bearer token to each request and, on a 401, runs a
// single refresh cycle shared by every request that failed meanwhile.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	store   storage.CredentialStore
	meta    models.DeviceMeta
	log     *slog.Logger
	metrics *metrics.Metrics

	// refresh exchanges a refresh token; defaults to c.Refresh.
	refresh func(ctx context.Context, refreshToken string) (*models.AuthResponse, error)

	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshOutcome
}

// Options configures NewClient. Store is required.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	Store      storage.CredentialStore
	Meta       models.DeviceMeta
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	HTTPClient *http.Client
}

// NewClient creates a new API client
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	c := &Client{
		BaseURL:    strings.TrimRight(opts.BaseURL, "/"),
		HTTPClient: opts.HTTPClient,
		store:      opts.Store,
		meta:       opts.Meta,
		log:        opts.Logger,
		metrics:    opts.Metrics,
	}
	c.refresh = c.Refresh
	return c
}

// Request describes one backend call
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   interface{}

	// Token overrides the stored access token for this call.
	Token string

	retried bool
}

// Do executes req and decodes a 2xx JSON body into out (which may be nil).
func (c *Client) Do(ctx context.Context, req *Request, out interface{}) error {
	token := req.Token
	if token == "" {
		token = c.store.LoadAll().AccessToken
	}

	status, body, err := c.send(ctx, req, token)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && !req.retried && !noRefreshPaths[req.Path] {
		newToken, err := c.awaitRefresh(ctx, token)
		if err != nil {
			return &utils.APIError{
				StatusCode: http.StatusUnauthorized,
				Message:    "session expired, please log in again",
				Err:        err,
			}
		}

		retry := *req
		retry.retried = true
		retry.Token = newToken
		c.log.Debug("api.replay", "method", req.Method, "path", req.Path)
		return c.Do(ctx, &retry, out)
	}

	return decodeResponse(status, body, out)
}

func (c *Client) send(ctx context.Context, req *Request, token string) (int, []byte, error) {
	var reader io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	target := c.BaseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	c.log.Debug("api.request", "method", req.Method, "path", req.Path, "auth", token != "")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		c.log.Warn("api.network.fail", "method", req.Method, "path", req.Path, "err", err)
		return 0, nil, utils.NewNetworkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, utils.NewNetworkError(err)
	}

	c.log.Debug("api.response", "method", req.Method, "path", req.Path, "status", resp.StatusCode)
	return resp.StatusCode, body, nil
}

func decodeResponse(status int, body []byte, out interface{}) error {
	if status < 200 || status >= 300 {
		return errorFromBody(status, body)
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// errorFromBody prefers the server's message; validation failures carry a list of them.
func errorFromBody(status int, body []byte) *utils.APIError {
	var envelope struct {
		Message json.RawMessage `json:"message"`
	}
	msg := ""
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Message) > 0 {
		var single string
		var list []string
		switch {
		case json.Unmarshal(envelope.Message, &single) == nil:
			msg = single
		case json.Unmarshal(envelope.Message, &list) == nil:
			msg = strings.Join(list, "; ")
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	if msg == "" {
		msg = "request failed"
	}
	return utils.NewAPIError(status, msg)
}
