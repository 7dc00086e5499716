package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType is the canonical kind of a server-side occurrence
type EventType string

const (
	EventMotionDetected EventType = "motion_detected"
	EventDeviceOnline   EventType = "device_online"
	EventDeviceOffline  EventType = "device_offline"
	EventDeviceArmed    EventType = "device_armed"
	EventDeviceDisarmed EventType = "device_disarmed"
)

// Valid reports whether t is one of the known event types
func (t EventType) Valid() bool {
	switch t {
	case EventMotionDetected, EventDeviceOnline, EventDeviceOffline, EventDeviceArmed, EventDeviceDisarmed:
		return true
	}
	return false
}

// UnmarshalJSON rejects event types the client does not know about
func (t *EventType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if !EventType(s).Valid() {
		return fmt.Errorf("unknown event type %q", s)
	}
	*t = EventType(s)
	return nil
}

// Event is a domain occurrence pushed by the backend or listed in history
type Event struct {
	ID          string         `json:"id" yaml:"id"`
	EventType   EventType      `json:"eventType" yaml:"event_type"`
	Description *string        `json:"description" yaml:"description,omitempty"`
	Metadata    map[string]any `json:"metadata" yaml:"metadata,omitempty"`
	DeviceMac   string         `json:"deviceMac" yaml:"device_mac"`
	UserID      string         `json:"userId" yaml:"user_id"`
	CreatedAt   time.Time      `json:"createdAt" yaml:"created_at"`
}

// EventVariant is the type-specific view of an Event
type EventVariant interface {
	eventVariant()
}

// MotionDetected is reported when a sensor trips
type MotionDetected struct {
	DeviceMac string
	At        time.Time
}

// DeviceConnectivity covers device_online and device_offline
type DeviceConnectivity struct {
	DeviceMac string
	Online    bool
}

// DeviceArming covers device_armed and device_disarmed
type DeviceArming struct {
	DeviceMac string
	Armed     bool
}

func (MotionDetected) eventVariant()     {}
func (DeviceConnectivity) eventVariant() {}
func (DeviceArming) eventVariant()       {}

// Variant returns the tagged variant keyed by EventType, or nil for an unknown type
func (e Event) Variant() EventVariant {
	switch e.EventType {
	case EventMotionDetected:
		return MotionDetected{DeviceMac: e.DeviceMac, At: e.CreatedAt}
	case EventDeviceOnline, EventDeviceOffline:
		return DeviceConnectivity{DeviceMac: e.DeviceMac, Online: e.EventType == EventDeviceOnline}
	case EventDeviceArmed, EventDeviceDisarmed:
		return DeviceArming{DeviceMac: e.DeviceMac, Armed: e.EventType == EventDeviceArmed}
	}
	return nil
}

// DeviceName returns metadata.deviceName when the backend supplied one
func (e Event) DeviceName() string {
	if name, ok := e.Metadata["deviceName"].(string); ok && name != "" {
		return name
	}
	if e.DeviceMac != "" {
		return e.DeviceMac
	}
	return "Device"
}

// AlarmStatus is pushed on the alarm:<userId> channel
type AlarmStatus struct {
	DeviceMac   string `json:"deviceMac"`
	AlarmActive bool   `json:"alarmActive"`
	Timestamp   int64  `json:"timestamp"`
}

// DeviceStatus is pushed on the device:<userId> channel
type DeviceStatus struct {
	DeviceMac string `json:"deviceMac"`
	IsOnline  bool   `json:"isOnline"`
	IsArmed   bool   `json:"isArmed"`
	Timestamp int64  `json:"timestamp"`
}

// GenericEvent is pushed on the event:<userId> channel
type GenericEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// EventStats summarizes the user's history
type EventStats struct {
	TotalEvents   int          `json:"totalEvents" yaml:"total_events"`
	MotionEvents  int          `json:"motionEvents" yaml:"motion_events"`
	DeviceChanges int          `json:"deviceChanges" yaml:"device_changes"`
	EventsPerDay  []DailyCount `json:"eventsPerDay" yaml:"events_per_day"`
}

// DailyCount is one bucket of EventStats.EventsPerDay
type DailyCount struct {
	Date  string `json:"date" yaml:"date"`
	Count int    `json:"count" yaml:"count"`
}
