package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/smartsecurity/cli/internal/models"
)

const deviceModesFile = "device_modes.yaml"

// DeviceModes keeps the operating mode chosen for each device, keyed by MAC.
type DeviceModes struct {
	log  *slog.Logger
	path string

	mu sync.RWMutex
}

// NewDeviceModes stores modes under dir.
func NewDeviceModes(log *slog.Logger, dir string) (*DeviceModes, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &DeviceModes{log: log, path: filepath.Join(dir, deviceModesFile)}, nil
}

// Get returns the mode for mac, automatic when unset or unreadable.
func (d *DeviceModes) Get(mac string) models.DeviceMode {
	d.mu.RLock()
	defer d.mu.RUnlock()

	modes, _ := d.read()
	if mode, ok := modes[mac]; ok {
		if m, err := models.ParseDeviceMode(string(mode)); err == nil {
			return m
		}
	}
	return models.DeviceModeAutomatic
}

// Set persists mode for mac. It refuses to write over a file it could not
// decode so the other devices' modes are not lost.
func (d *DeviceModes) Set(mac string, mode models.DeviceMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	modes, err := d.read()
	if err != nil {
		return err
	}
	modes[mac] = mode
	if err := writeYAML(d.path, modes); err != nil {
		return err
	}
	d.log.Debug("storage.device_mode.save", "mac", mac, "mode", mode)
	return nil
}

// Clear forgets the mode for mac.
func (d *DeviceModes) Clear(mac string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	modes, err := d.read()
	if err != nil {
		return err
	}
	if _, ok := modes[mac]; !ok {
		return nil
	}
	delete(modes, mac)
	return writeYAML(d.path, modes)
}

// All returns every stored mode.
func (d *DeviceModes) All() map[string]models.DeviceMode {
	d.mu.RLock()
	defer d.mu.RUnlock()

	modes, _ := d.read()
	return modes
}

// read always returns a usable map; the error reports a file that exists
// but could not be loaded.
func (d *DeviceModes) read() (map[string]models.DeviceMode, error) {
	modes := make(map[string]models.DeviceMode)
	data, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return modes, nil
		}
		d.log.Warn("storage.read.fail", "path", d.path, "err", err)
		return modes, fmt.Errorf("read %s: %w", d.path, err)
	}
	if err := yaml.Unmarshal(data, &modes); err != nil {
		d.log.Warn("storage.decode.fail", "path", d.path, "err", err)
		return make(map[string]models.DeviceMode), fmt.Errorf("decode %s: %w", d.path, err)
	}
	if modes == nil {
		modes = make(map[string]models.DeviceMode)
	}
	return modes, nil
}
