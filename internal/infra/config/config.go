// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Admin      AdminConfig      `yaml:"admin"`
	Lounge     LoungeConfig     `yaml:"lounge"`
	Entries    EntriesConfig    `yaml:"entries"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Metadata   MetadataConfig   `yaml:"metadata"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" default:":8080" validate:"required"`
}

// AdminConfig represents admin-related configuration.
type AdminConfig struct {
	Token string `yaml:"token" validate:"required"`
}

// LoungeConfig represents control channel configuration.
type LoungeConfig struct {
	DeviceName string                  `yaml:"device_name" default:"ytlounge" validate:"required"`
	Driver     string                  `yaml:"driver" default:"simulator" validate:"required"`
	Drivers    map[string]DriverConfig `yaml:"drivers"`
}

// DriverConfig represents a single lounge driver configuration.
type DriverConfig struct {
	Settings map[string]any `yaml:"settings,omitempty"`
}

// EntriesConfig represents the paired screen store configuration.
type EntriesConfig struct {
	Path            string `yaml:"path" default:"data/entries.yaml" validate:"required"`
	WatchDebounceMs int    `yaml:"watch_debounce_ms" default:"500" validate:"gte=0,lte=60000"`
}

// SupervisorConfig represents keep-alive interval configuration.
type SupervisorConfig struct {
	ConnectRetryIntervalMs   int `yaml:"connect_retry_interval_ms" default:"10000" validate:"gte=1"`
	ErrorRetryIntervalMs     int `yaml:"error_retry_interval_ms" default:"30000" validate:"gte=1"`
	SubscribeRetryIntervalMs int `yaml:"subscribe_retry_interval_ms" default:"1000" validate:"gte=1"`
}

// MetadataConfig represents video metadata lookup configuration.
type MetadataConfig struct {
	GoogleAPIKey       string `yaml:"google_api_key"`
	Endpoint           string `yaml:"endpoint" validate:"omitempty,url"`
	TimeoutMs          int    `yaml:"timeout_ms" default:"10000" validate:"gte=1"`
	RetryFailedAfterMs int    `yaml:"retry_failed_after_ms" default:"0" validate:"gte=0"`
}

// MetricsConfig represents Prometheus endpoint configuration.
type MetricsConfig struct {
	Disabled bool   `yaml:"disabled"`
	Path     string `yaml:"path" default:"/metrics" validate:"startswith=/"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses configuration from YAML data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("YTLOUNGE_ADMIN_TOKEN"); v != "" {
		c.Admin.Token = v
	}
	if v := os.Getenv("YTLOUNGE_GOOGLE_API_KEY"); v != "" {
		c.Metadata.GoogleAPIKey = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// DriverSettings returns the settings of the named driver, or an empty map.
func (c *Config) DriverSettings(name string) map[string]any {
	if d, ok := c.Lounge.Drivers[name]; ok && d.Settings != nil {
		return d.Settings
	}
	return map[string]any{}
}

// ConnectRetryInterval returns the wait between reconnect attempts.
func (s SupervisorConfig) ConnectRetryInterval() time.Duration {
	return time.Duration(s.ConnectRetryIntervalMs) * time.Millisecond
}

// ErrorRetryInterval returns the wait before restarting after an error.
func (s SupervisorConfig) ErrorRetryInterval() time.Duration {
	return time.Duration(s.ErrorRetryIntervalMs) * time.Millisecond
}

// SubscribeRetryInterval returns the wait after a subscription ends.
func (s SupervisorConfig) SubscribeRetryInterval() time.Duration {
	return time.Duration(s.SubscribeRetryIntervalMs) * time.Millisecond
}

// Timeout returns the per-lookup timeout.
func (m MetadataConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutMs) * time.Millisecond
}

// RetryFailedAfter returns how long a failed lookup stays suppressed.
// Zero means until a different video is seen.
func (m MetadataConfig) RetryFailedAfter() time.Duration {
	return time.Duration(m.RetryFailedAfterMs) * time.Millisecond
}

// WatchDebounce returns the delay used to coalesce entry file events.
func (e EntriesConfig) WatchDebounce() time.Duration {
	return time.Duration(e.WatchDebounceMs) * time.Millisecond
}
