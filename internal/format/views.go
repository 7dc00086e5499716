package format

import (
	"sort"
	"strconv"
	"time"

	"github.com/smartsecurity/cli/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

// DeviceList renders devices with their locally stored mode
type DeviceList struct {
	Devices []models.Device
	Modes   map[string]models.DeviceMode
}

func (d DeviceList) Raw() interface{} {
	type row struct {
		models.Device `yaml:",inline"`
		Mode          models.DeviceMode `json:"mode,omitempty" yaml:"mode,omitempty"`
	}
	out := make([]row, 0, len(d.Devices))
	for _, dev := range d.Devices {
		out = append(out, row{Device: dev, Mode: d.Modes[dev.MacAddress]})
	}
	return out
}

func (d DeviceList) Table() Table {
	t := Table{Headers: []string{"ID", "Name", "MAC", "Type", "Status", "Mode", "Updated"}}
	for _, dev := range d.Devices {
		status := "disarmed"
		if dev.IsActive {
			status = "armed"
		}
		mode := d.Modes[dev.MacAddress]
		if mode == "" {
			mode = models.DeviceModeAutomatic
		}
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(dev.ID),
			dev.DisplayName(),
			dev.MacAddress,
			dev.DeviceType,
			status,
			string(mode),
			stamp(dev.UpdatedAt),
		})
	}
	return t
}

// EventList renders event history, newest first as returned by the server
type EventList []models.Event

func (e EventList) Raw() interface{} {
	return []models.Event(e)
}

func (e EventList) Table() Table {
	t := Table{Headers: []string{"Time", "Type", "Device", "Description"}}
	for _, ev := range e {
		desc := ""
		if ev.Description != nil {
			desc = *ev.Description
		}
		t.Rows = append(t.Rows, []string{
			stamp(ev.CreatedAt),
			string(ev.EventType),
			ev.DeviceName(),
			desc,
		})
	}
	return t
}

// Stats renders event statistics as a summary followed by daily counts
type Stats struct {
	*models.EventStats
}

func (s Stats) Raw() interface{} {
	return s.EventStats
}

func (s Stats) Table() Table {
	t := Table{Headers: []string{"Key", "Value"}}
	if s.EventStats == nil {
		return t
	}
	t.Rows = append(t.Rows,
		[]string{"Total Events", strconv.Itoa(s.TotalEvents)},
		[]string{"Motion Events", strconv.Itoa(s.MotionEvents)},
		[]string{"Device Changes", strconv.Itoa(s.DeviceChanges)},
	)
	for _, day := range s.EventsPerDay {
		t.Rows = append(t.Rows, []string{day.Date, strconv.Itoa(day.Count)})
	}
	return t
}

// KeyValues renders an ordered property list
type KeyValues map[string]string

func (kv KeyValues) Raw() interface{} {
	return map[string]string(kv)
}

func (kv KeyValues) Table() Table {
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := Table{Headers: []string{"Key", "Value"}}
	for _, k := range keys {
		t.Rows = append(t.Rows, []string{k, kv[k]})
	}
	return t
}

func stamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Local().Format(timeLayout)
}
