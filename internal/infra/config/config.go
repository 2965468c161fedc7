// Package config provides configuration loading from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Device  DeviceConfig  `yaml:"device"`
	Media   MediaConfig   `yaml:"media"`
	Catalog CatalogConfig `yaml:"catalog"`
	Queue   QueueConfig   `yaml:"queue"`
	Notify  NotifyConfig  `yaml:"notify"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" default:":8001"`
}

// DeviceConfig represents the playback device configuration.
type DeviceConfig struct {
	IP             string `yaml:"ip" validate:"required,ip"`
	TimeoutMs      int    `yaml:"timeout_ms" default:"3000" validate:"gte=100,lte=30000"`
	PollIntervalMs int    `yaml:"poll_interval_ms" default:"500" validate:"gte=100,lte=10000"`
}

// MediaConfig represents the media server the device streams from.
type MediaConfig struct {
	Host         string `yaml:"host" validate:"required"`
	Port         int    `yaml:"port" default:"54000" validate:"gte=1,lte=65535"`
	Path         string `yaml:"path" validate:"required"`
	PlaylistPath string `yaml:"playlist_path"`
}

// CatalogConfig represents the music catalog configuration.
type CatalogConfig struct {
	DBPath string `yaml:"db_path"`
}

// QueueConfig represents command queue configuration.
type QueueConfig struct {
	MaxPending       int `yaml:"max_pending" default:"0" validate:"gte=0"`
	EnqueueTimeoutMs int `yaml:"enqueue_timeout_ms" default:"1000" validate:"gte=0"`
}

// NotifyConfig represents notification fan-out configuration.
type NotifyConfig struct {
	MailboxSize  int `yaml:"mailbox_size" default:"16" validate:"gte=1,lte=1024"`
	KeepaliveSec int `yaml:"keepalive_sec" default:"15" validate:"gte=1,lte=300"`
}

// DeviceTimeout returns the device call timeout as a duration.
func (c *Config) DeviceTimeout() time.Duration {
	return time.Duration(c.Device.TimeoutMs) * time.Millisecond
}

// PollInterval returns the monitor poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Device.PollIntervalMs) * time.Millisecond
}

// EnqueueTimeout returns the producer backpressure timeout as a duration.
func (c *Config) EnqueueTimeout() time.Duration {
	return time.Duration(c.Queue.EnqueueTimeoutMs) * time.Millisecond
}

// Keepalive returns the SSE keepalive window as a duration.
func (c *Config) Keepalive() time.Duration {
	return time.Duration(c.Notify.KeepaliveSec) * time.Second
}

// MediaBaseURL returns the base URL tracks are served from.
func (c *Config) MediaBaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Media.Host, c.Media.Port)
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SONOBOX_DEVICE_IP"); v != "" {
		c.Device.IP = v
	}
	if v := os.Getenv("SONOBOX_MEDIA_HOST"); v != "" {
		c.Media.Host = v
	}
	if v := os.Getenv("SONOBOX_MEDIA_PATH"); v != "" {
		c.Media.Path = v
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
