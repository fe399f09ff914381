package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "padsync.json"

	// EnvPrefix is the prefix for environment variable overrides.
	EnvPrefix = "padsync"

	// DefaultAddress is the default listen address.
	DefaultAddress = ":3000"
)

// Config represents the complete padsync.json configuration.
type Config struct {
	// Name is the deployment name, used only for logging.
	Name string `json:"name,omitempty" envconfig:"NAME"`

	// Address is the listen address (e.g., ":3000" or "0.0.0.0:3000").
	Address string `json:"address,omitempty" envconfig:"ADDRESS"`

	// Log contains logging configuration.
	Log LogConfig `json:"log,omitempty"`

	// Timeouts contains connection timeout configuration.
	Timeouts TimeoutConfig `json:"timeouts,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// LogConfig contains logging configuration.
type LogConfig struct {
	// Level is the minimum log level: debug, info, warn, or error.
	Level string `json:"level,omitempty" envconfig:"LOG_LEVEL"`

	// Format is the log output format: text or json.
	Format string `json:"format,omitempty" envconfig:"LOG_FORMAT"`
}

// TimeoutConfig contains connection timeout configuration. Durations use Go
// syntax ("30s", "1m").
type TimeoutConfig struct {
	// Read is the maximum silence tolerated on a connection before it is
	// considered dead.
	Read Duration `json:"read,omitempty" envconfig:"READ_TIMEOUT"`

	// Write is the per-frame write deadline.
	Write Duration `json:"write,omitempty" envconfig:"WRITE_TIMEOUT"`

	// Ping is the heartbeat interval. Must be shorter than Read.
	Ping Duration `json:"ping,omitempty" envconfig:"PING_INTERVAL"`

	// Shutdown is the graceful shutdown budget.
	Shutdown Duration `json:"shutdown,omitempty" envconfig:"SHUTDOWN_TIMEOUT"`
}

// Duration is a time.Duration that marshals as a Go duration string in JSON
// and parses from one in environment variables.
type Duration time.Duration

// UnmarshalJSON parses either a duration string or a bare number of
// nanoseconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("config: invalid duration %q: %w", value, err)
		}
		*d = Duration(parsed)
		return nil
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	default:
		return fmt.Errorf("config: invalid duration %v", v)
	}
}

// MarshalJSON renders the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Decode implements envconfig.Decoder.
func (d *Duration) Decode(value string) error {
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", value, err)
	}
	*d = Duration(parsed)
	return nil
}

// New returns a Config with all defaults applied.
func New() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads padsync.json from dir, falling back to pure defaults when the
// file does not exist, then applies environment overrides.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path. A missing file
// is not an error: the server is fully usable with defaults and environment
// variables alone.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// No file; defaults + environment only.
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.configPath = path
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the path the config was loaded from, or "" when running on
// defaults.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "padsync"
	}
	if c.Address == "" {
		c.Address = DefaultAddress
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Timeouts.Read == 0 {
		c.Timeouts.Read = Duration(60 * time.Second)
	}
	if c.Timeouts.Write == 0 {
		c.Timeouts.Write = Duration(10 * time.Second)
	}
	if c.Timeouts.Ping == 0 {
		c.Timeouts.Ping = Duration(30 * time.Second)
	}
	if c.Timeouts.Shutdown == 0 {
		c.Timeouts.Shutdown = Duration(30 * time.Second)
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: invalid log format %q", c.Log.Format)
	}
	if c.Timeouts.Ping >= c.Timeouts.Read {
		return fmt.Errorf("config: ping interval (%s) must be shorter than read timeout (%s)",
			time.Duration(c.Timeouts.Ping), time.Duration(c.Timeouts.Read))
	}
	return nil
}
