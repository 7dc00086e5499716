package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/smartsecurity/cli/internal/models"
)

// DefaultEventLimit mirrors the backend's page size.
const DefaultEventLimit = 50

// ListEvents returns the most recent events of the user
func (c *Client) ListEvents(ctx context.Context, limit int) ([]models.Event, error) {
	return c.listEvents(ctx, "/events", limit)
}

// ListMotionEvents returns only motion_detected events
func (c *Client) ListMotionEvents(ctx context.Context, limit int) ([]models.Event, error) {
	return c.listEvents(ctx, "/events/motion", limit)
}

// ListDeviceEvents returns the events of one device
func (c *Client) ListDeviceEvents(ctx context.Context, mac string, limit int) ([]models.Event, error) {
	return c.listEvents(ctx, "/events/device/"+url.PathEscape(mac), limit)
}

// EventStats summarizes the last days of history
func (c *Client) EventStats(ctx context.Context, days int) (*models.EventStats, error) {
	if days <= 0 {
		days = 7
	}
	var out models.EventStats
	q := url.Values{"days": {strconv.Itoa(days)}}
	if err := c.Do(ctx, &Request{Method: http.MethodGet, Path: "/events/stats", Query: q}, &out); err != nil {
		return nil, fmt.Errorf("event stats: %w", err)
	}
	return &out, nil
}

func (c *Client) listEvents(ctx context.Context, path string, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	var out []models.Event
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: q}, &out); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}
