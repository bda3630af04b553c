// Package config loads the storefront configuration file.
package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend selection for the cart.
const (
	BackendRemote = "remote"
	BackendLocal  = "local"
)

// Config is the storefront runtime configuration.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Database DatabaseConfig `yaml:"database"`
	Cart     CartConfig     `yaml:"cart"`
	Log      LogConfig      `yaml:"log"`
}

// Duration parses YAML strings like "5s" into a time.Duration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// APIConfig locates the storefront HTTP API.
type APIConfig struct {
	BaseURL string   `yaml:"base_url"`
	Timeout Duration `yaml:"timeout"`
}

// DatabaseConfig locates the local state database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// CartConfig selects the cart backend strategy.
type CartConfig struct {
	Backend string `yaml:"backend"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		API:      APIConfig{BaseURL: "http://localhost:8600/api", Timeout: Duration(10 * time.Second)},
		Database: DatabaseConfig{Path: "storefront.db"},
		Cart:     CartConfig{Backend: BackendRemote},
		Log:      LogConfig{Level: "info"},
	}
}

// Load reads a YAML configuration file over the defaults. Unknown fields are
// rejected so typos fail loudly instead of silently falling back.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Cart.Backend != BackendRemote && c.Cart.Backend != BackendLocal {
		return fmt.Errorf("cart.backend must be %q or %q, got %q", BackendRemote, BackendLocal, c.Cart.Backend)
	}
	if c.Cart.Backend == BackendRemote && c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required for the remote backend")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps the configured level name onto slog.
func (c Config) SlogLevel() (slog.Level, error) {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
}
