package models

import (
	"fmt"
	"strings"
	"time"
)

// Device is an ESP32 sensor registered to the user
type Device struct {
	ID         int       `json:"id" yaml:"id"`
	MacAddress string    `json:"macAddress" yaml:"mac_address"`
	Name       *string   `json:"name" yaml:"name"`
	DeviceType string    `json:"deviceType" yaml:"device_type"`
	IsActive   bool      `json:"isActive" yaml:"is_active"`
	UserID     string    `json:"userId" yaml:"user_id"`
	CreatedAt  time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" yaml:"updated_at"`
}

// DisplayName falls back to the MAC address when the device is unnamed
func (d Device) DisplayName() string {
	if d.Name != nil && strings.TrimSpace(*d.Name) != "" {
		return *d.Name
	}
	return d.MacAddress
}

// RegisterDeviceRequest links a freshly provisioned device to the account
type RegisterDeviceRequest struct {
	MacAddress string `json:"macAddress"`
	Name       string `json:"name,omitempty"`
}

// UpdateDeviceRequest is a partial device update
type UpdateDeviceRequest struct {
	Name     *string `json:"name,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
}

// DeviceMode controls how a device reacts to motion
type DeviceMode string

const (
	DeviceModeAutomatic DeviceMode = "automatic"
	DeviceModeDisabled  DeviceMode = "disabled"
	DeviceModeActive    DeviceMode = "active"
)

// ParseDeviceMode validates a mode string
func ParseDeviceMode(s string) (DeviceMode, error) {
	switch m := DeviceMode(strings.ToLower(strings.TrimSpace(s))); m {
	case DeviceModeAutomatic, DeviceModeDisabled, DeviceModeActive:
		return m, nil
	default:
		return "", fmt.Errorf("invalid device mode %q (use automatic, disabled or active)", s)
	}
}

// DeviceModeResponse is returned by the mode update endpoint
type DeviceModeResponse struct {
	Message string     `json:"message"`
	Mode    DeviceMode `json:"mode"`
}
