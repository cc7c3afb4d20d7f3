// Package config loads the client configuration. Settings come from a
// YAML file, with unset fields filled by defaults; the CLI may override
// individual values with flags after loading.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Errors returned by the config package.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("config: invalid configuration")
	// ErrConfigNotFound is returned when the config file is not found.
	ErrConfigNotFound = errors.New("config: configuration file not found")
)

// Config is the root configuration for the client.
type Config struct {
	// Server configures the platform API endpoint.
	Server ServerConfig `yaml:"server"`

	// Poll configures the notification polling loop.
	Poll PollConfig `yaml:"poll,omitempty"`

	// Credentials configures durable credential storage.
	Credentials CredentialsConfig `yaml:"credentials,omitempty"`

	// Metrics configures the optional metrics endpoint for watch mode.
	Metrics MetricsConfig `yaml:"metrics,omitempty"`

	// Verbose enables debug logging.
	Verbose bool `yaml:"verbose,omitempty"`
}

// ServerConfig holds API endpoint settings.
type ServerConfig struct {
	// BaseURL is the API root (e.g. "https://api.abroad.example").
	BaseURL string `yaml:"baseURL"`

	// Timeout is the per-request timeout.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// RateLimit caps outgoing requests per second. Zero disables limiting.
	RateLimit float64 `yaml:"rateLimit,omitempty"`
}

// PollConfig holds notification polling settings.
type PollConfig struct {
	// Interval is the time between notification fetches.
	// Default: 30s
	Interval time.Duration `yaml:"interval,omitempty"`
}

// CredentialsConfig holds credential storage settings.
type CredentialsConfig struct {
	// Path is the credential file location.
	// Default: the per-user config directory.
	Path string `yaml:"path,omitempty"`
}

// MetricsConfig holds metrics endpoint settings.
type MetricsConfig struct {
	// Enabled turns the metrics endpoint on in watch mode.
	Enabled bool `yaml:"enabled,omitempty"`

	// Addr is the listen address for the metrics endpoint.
	// Default: ":9190"
	Addr string `yaml:"addr,omitempty"`
}

// DefaultPath returns the standard config file location for the current
// user.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving user config dir: %w", err)
	}
	return filepath.Join(dir, "abroad", "config.yaml"), nil
}

// Load reads configuration from a YAML file. An empty path falls back
// to the default location; a missing default file yields the built-in
// defaults rather than an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if explicit {
				return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
			}
			cfg := &Config{}
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return LoadBytes(data)
}

// LoadBytes parses configuration from YAML bytes.
func LoadBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("%w: server.baseURL is required", ErrInvalidConfig)
	}
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: server.baseURL must be an absolute URL", ErrInvalidConfig)
	}
	if c.Server.Timeout < 0 {
		return fmt.Errorf("%w: server.timeout must not be negative", ErrInvalidConfig)
	}
	if c.Poll.Interval < time.Second {
		return fmt.Errorf("%w: poll.interval must be at least 1s", ErrInvalidConfig)
	}
	return nil
}

// ApplyDefaults fills unset fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8080"
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = 30 * time.Second
	}
	if c.Poll.Interval == 0 {
		c.Poll.Interval = 30 * time.Second
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9190"
	}
}
