package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func initTemp(t *testing.T) string {
	t.Helper()
	viper.Reset()
	globalConfig = nil
	t.Cleanup(func() {
		viper.Reset()
		globalConfig = nil
	})

	path := filepath.Join(t.TempDir(), "smartsec.yaml")
	if err := Initialize(path); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return path
}

func TestInitializeCreatesDefaultsAndDeviceID(t *testing.T) {
	path := initTemp(t)

	cfg := Get()
	if cfg.Server.URL != "http://localhost:3000" {
		t.Fatalf("server.url=%q", cfg.Server.URL)
	}
	if cfg.Realtime.ReconnectAttempts != 5 || cfg.ReconnectDelay() != time.Second {
		t.Fatalf("realtime defaults=%+v", cfg.Realtime)
	}
	if cfg.Device.ID == "" {
		t.Fatalf("device id not generated")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	var onDisk map[string]map[string]interface{}
	if err := yaml.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if onDisk["device"]["id"] != cfg.Device.ID {
		t.Fatalf("device id not persisted: %v", onDisk["device"])
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("SMARTSEC_SERVER_URL", "https://api.example.com")
	initTemp(t)

	if got := Get().Server.URL; got != "https://api.example.com" {
		t.Fatalf("server.url=%q", got)
	}
}

func TestSetValue(t *testing.T) {
	initTemp(t)

	if err := SetValue("server.nope", "x"); err == nil {
		t.Fatalf("unknown key accepted")
	}
	if err := SetValue("realtime.reconnect_attempts", "9"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if got := Get().Realtime.ReconnectAttempts; got != 9 {
		t.Fatalf("reconnect_attempts=%d", got)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"2s", 2 * time.Second},
		{" 150ms ", 150 * time.Millisecond},
		{"", 10 * time.Second},
		{"-1s", 10 * time.Second},
		{"soon", 10 * time.Second},
	}
	for _, tt := range tests {
		if got := parseDuration(tt.in, 10*time.Second); got != tt.want {
			t.Fatalf("parseDuration(%q)=%v want=%v", tt.in, got, tt.want)
		}
	}
}

func TestOutputFormatPrecedence(t *testing.T) {
	initTemp(t)
	t.Cleanup(func() { outputFormat = "" })

	if got := GetOutputFormat(); got != "table" {
		t.Fatalf("default format=%q", got)
	}
	SetOutputFormat("json")
	if got := GetOutputFormat(); got != "json" {
		t.Fatalf("flag format=%q", got)
	}
}

func TestKeysAndValue(t *testing.T) {
	initTemp(t)

	keys := Keys()
	if len(keys) != len(defaults()) {
		t.Fatalf("keys=%d defaults=%d", len(keys), len(defaults()))
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] > keys[i] {
			t.Fatalf("keys not sorted: %v", keys)
		}
	}
	if got := Value("device.type"); got != "cli" {
		t.Fatalf("device.type=%q", got)
	}
}
