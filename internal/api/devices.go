package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/smartsecurity/cli/internal/models"
)

// ListDevices returns every device linked to the account
func (c *Client) ListDevices(ctx context.Context) ([]models.Device, error) {
	var out []models.Device
	if err := c.Do(ctx, &Request{Method: http.MethodGet, Path: "/devices"}, &out); err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return out, nil
}

// GetDevice fetches a device by numeric id
func (c *Client) GetDevice(ctx context.Context, id int) (*models.Device, error) {
	var out models.Device
	if err := c.Do(ctx, &Request{Method: http.MethodGet, Path: fmt.Sprintf("/devices/%d", id)}, &out); err != nil {
		return nil, fmt.Errorf("get device %d: %w", id, err)
	}
	return &out, nil
}

// GetDeviceByMAC fetches a device by hardware address
func (c *Client) GetDeviceByMAC(ctx context.Context, mac string) (*models.Device, error) {
	var out models.Device
	if err := c.Do(ctx, &Request{Method: http.MethodGet, Path: "/devices/mac/" + url.PathEscape(mac)}, &out); err != nil {
		return nil, fmt.Errorf("get device %s: %w", mac, err)
	}
	return &out, nil
}

// RegisterDevice links a provisioned device to the account
func (c *Client) RegisterDevice(ctx context.Context, req models.RegisterDeviceRequest) (*models.Device, error) {
	var out models.Device
	if err := c.Do(ctx, &Request{Method: http.MethodPost, Path: "/devices/register", Body: req}, &out); err != nil {
		return nil, fmt.Errorf("register device: %w", err)
	}
	return &out, nil
}

// UpdateDevice applies a partial update
func (c *Client) UpdateDevice(ctx context.Context, id int, req models.UpdateDeviceRequest) (*models.Device, error) {
	var out models.Device
	if err := c.Do(ctx, &Request{Method: http.MethodPatch, Path: fmt.Sprintf("/devices/%d", id), Body: req}, &out); err != nil {
		return nil, fmt.Errorf("update device %d: %w", id, err)
	}
	return &out, nil
}

// DeleteDevice unlinks a device
func (c *Client) DeleteDevice(ctx context.Context, id int) error {
	if err := c.Do(ctx, &Request{Method: http.MethodDelete, Path: fmt.Sprintf("/devices/%d", id)}, nil); err != nil {
		return fmt.Errorf("delete device %d: %w", id, err)
	}
	return nil
}

// DeactivateAlarm silences a ringing device
func (c *Client) DeactivateAlarm(ctx context.Context, mac string) (*models.MessageResponse, error) {
	var out models.MessageResponse
	path := "/devices/" + url.PathEscape(mac) + "/deactivate-alarm"
	if err := c.Do(ctx, &Request{Method: http.MethodPost, Path: path}, &out); err != nil {
		return nil, fmt.Errorf("deactivate alarm on %s: %w", mac, err)
	}
	return &out, nil
}

// UpdateDeviceMode changes how the device reacts to motion
func (c *Client) UpdateDeviceMode(ctx context.Context, mac string, mode models.DeviceMode) (*models.DeviceModeResponse, error) {
	var out models.DeviceModeResponse
	path := "/devices/" + url.PathEscape(mac) + "/mode"
	if err := c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: map[string]models.DeviceMode{"mode": mode}}, &out); err != nil {
		return nil, fmt.Errorf("set mode on %s: %w", mac, err)
	}
	return &out, nil
}
