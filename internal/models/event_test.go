package models

import (
	"encoding/json"
	"testing"
)

func TestEventDecodeRejectsUnknownType(t *testing.T) {
	var ev Event
	err := json.Unmarshal([]byte(`{"id":"1","eventType":"door_opened","deviceMac":"AA"}`), &ev)
	if err == nil {
		t.Fatalf("expected error for unknown event type")
	}
}

func TestEventVariant(t *testing.T) {
	t.Parallel()

	cases := []struct {
		typ  EventType
		want EventVariant
	}{
		{typ: EventMotionDetected, want: MotionDetected{DeviceMac: "AA"}},
		{typ: EventDeviceOnline, want: DeviceConnectivity{DeviceMac: "AA", Online: true}},
		{typ: EventDeviceOffline, want: DeviceConnectivity{DeviceMac: "AA", Online: false}},
		{typ: EventDeviceArmed, want: DeviceArming{DeviceMac: "AA", Armed: true}},
		{typ: EventDeviceDisarmed, want: DeviceArming{DeviceMac: "AA", Armed: false}},
		{typ: EventType("bogus"), want: nil},
	}

	for _, tc := range cases {
		got := Event{EventType: tc.typ, DeviceMac: "AA"}.Variant()
		if got != tc.want {
			t.Fatalf("Variant(%s)=%#v want=%#v", tc.typ, got, tc.want)
		}
	}
}

func TestEventDeviceName(t *testing.T) {
	ev := Event{DeviceMac: "AA:BB", Metadata: map[string]any{"deviceName": "Hallway"}}
	if got := ev.DeviceName(); got != "Hallway" {
		t.Fatalf("DeviceName=%q", got)
	}
	ev.Metadata = nil
	if got := ev.DeviceName(); got != "AA:BB" {
		t.Fatalf("DeviceName fallback=%q", got)
	}
}

func TestParseDeviceMode(t *testing.T) {
	if m, err := ParseDeviceMode(" Active "); err != nil || m != DeviceModeActive {
		t.Fatalf("ParseDeviceMode: %v %v", m, err)
	}
	if _, err := ParseDeviceMode("armed"); err == nil {
		t.Fatalf("expected error")
	}
}
