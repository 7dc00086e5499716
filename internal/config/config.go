package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const configName = ".smartsec"

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Realtime RealtimeConfig `yaml:"realtime" mapstructure:"realtime"`
	Storage  StorageConfig  `yaml:"storage" mapstructure:"storage"`
	Device   DeviceConfig   `yaml:"device" mapstructure:"device"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Format   FormatConfig   `yaml:"format" mapstructure:"format"`
	Metrics  MetricsConfig  `yaml:"metrics" mapstructure:"metrics"`
}

// ServerConfig contains REST backend settings
type ServerConfig struct {
	URL     string `yaml:"url" mapstructure:"url"`
	Timeout string `yaml:"timeout" mapstructure:"timeout"`
}

// RealtimeConfig contains websocket settings
type RealtimeConfig struct {
	URL               string `yaml:"url" mapstructure:"url"`
	ReconnectAttempts int    `yaml:"reconnect_attempts" mapstructure:"reconnect_attempts"`
	ReconnectDelay    string `yaml:"reconnect_delay" mapstructure:"reconnect_delay"`
}

// StorageConfig points at the directory holding credentials and device modes
type StorageConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// DeviceConfig identifies this client installation to the backend
type DeviceConfig struct {
	ID   string `yaml:"id" mapstructure:"id"`
	Type string `yaml:"type" mapstructure:"type"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// FormatConfig contains output formatting settings
type FormatConfig struct {
	Default string `yaml:"default" mapstructure:"default"`
	Colors  bool   `yaml:"colors" mapstructure:"colors"`
}

// MetricsConfig contains the prometheus listener address (empty disables it)
type MetricsConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

var (
	globalConfig *Config
	configPath   string
	debug        bool
	outputFormat string
)

// Initialize loads the configuration from file, .env and environment
func Initialize(configFile string) error {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		configPath = configFile
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("could not get home directory: %w", err)
		}

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(configName)
		configPath = filepath.Join(home, configName+".yaml")
	}

	viper.SetEnvPrefix("SMARTSEC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
			if err := createDefaultConfig(); err != nil {
				return fmt.Errorf("could not create default config: %w", err)
			}
		} else {
			return fmt.Errorf("could not read config file: %w", err)
		}
	}

	globalConfig = &Config{}
	if err := viper.Unmarshal(globalConfig); err != nil {
		return fmt.Errorf("could not unmarshal config: %w", err)
	}

	if globalConfig.Device.ID == "" {
		if err := SetValue("device.id", uuid.NewString()); err != nil {
			return fmt.Errorf("could not persist device id: %w", err)
		}
	}

	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	for key, value := range defaults() {
		viper.SetDefault(key, value)
	}
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.url":                  "http://localhost:3000",
		"server.timeout":              "10s",
		"realtime.url":                "ws://localhost:3000",
		"realtime.reconnect_attempts": 5,
		"realtime.reconnect_delay":    "1s",
		"storage.dir":                 defaultStorageDir(),
		"device.id":                   "",
		"device.type":                 "cli",
		"log.level":                   "warn",
		"format.default":              "table",
		"format.colors":               true,
		"metrics.addr":                "",
	}
}

func defaultStorageDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".smartsec"
	}
	return filepath.Join(dir, "smartsec")
}

// createDefaultConfig writes a default configuration file at configPath
func createDefaultConfig() error {
	defaultConfig := Config{
		Server:   ServerConfig{URL: "http://localhost:3000", Timeout: "10s"},
		Realtime: RealtimeConfig{URL: "ws://localhost:3000", ReconnectAttempts: 5, ReconnectDelay: "1s"},
		Storage:  StorageConfig{Dir: defaultStorageDir()},
		Device:   DeviceConfig{Type: "cli"},
		Log:      LogConfig{Level: "warn"},
		Format:   FormatConfig{Default: "table", Colors: true},
	}

	data, err := yaml.Marshal(defaultConfig)
	if err != nil {
		return err
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return err
	}
	viper.SetConfigFile(configPath)
	return nil
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		globalConfig = &Config{}
	}
	return globalConfig
}

// Path returns the config file in use
func Path() string {
	return configPath
}

// SetValue updates one dotted key and persists the config file
func SetValue(key, value string) error {
	if _, ok := defaults()[key]; !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}
	if globalConfig == nil {
		return fmt.Errorf("configuration not initialized")
	}

	viper.Set(key, value)
	if err := viper.Unmarshal(globalConfig); err != nil {
		return fmt.Errorf("could not unmarshal config: %w", err)
	}
	return viper.WriteConfigAs(configPath)
}

// Keys returns every settable key, sorted
func Keys() []string {
	keys := make([]string, 0, len(defaults()))
	for k := range defaults() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Value returns the effective value of key as a string
func Value(key string) string {
	return viper.GetString(key)
}

// Timeout parses server.timeout, falling back to 10s
func (c *Config) Timeout() time.Duration {
	return parseDuration(c.Server.Timeout, 10*time.Second)
}

// ReconnectDelay parses realtime.reconnect_delay, falling back to 1s
func (c *Config) ReconnectDelay() time.Duration {
	return parseDuration(c.Realtime.ReconnectDelay, time.Second)
}

func parseDuration(raw string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// SetDebug sets the debug mode
func SetDebug(enabled bool) {
	debug = enabled
}

// IsDebug returns whether debug mode is enabled
func IsDebug() bool {
	return debug
}

// SetOutputFormat sets the output format
func SetOutputFormat(format string) {
	outputFormat = format
}

// GetOutputFormat returns the current output format
func GetOutputFormat() string {
	if outputFormat != "" {
		return outputFormat
	}
	if globalConfig != nil && globalConfig.Format.Default != "" {
		return globalConfig.Format.Default
	}
	return "table"
}
