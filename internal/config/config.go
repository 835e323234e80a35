// Package config loads the server configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/goliatone/go-license-server/cache"
	"github.com/goliatone/go-license-server/internal/store"
)

// EnvPrefix is the prefix of every configuration variable, e.g.
// LICENSE_SERVER_PORT or LICENSE_DATABASE_DSN.
const EnvPrefix = "LICENSE"

// Config is the complete server configuration.
type Config struct {
	Server   ServerConfig   `envconfig:"SERVER"`
	Database DatabaseConfig `envconfig:"DATABASE"`
	Cache    CacheConfig    `envconfig:"CACHE"`
	Logging  LoggingConfig  `envconfig:"LOGGING"`
}

// ServerConfig contains the HTTP listener settings.
type ServerConfig struct {
	Port            int           `envconfig:"PORT" default:"3000"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// DatabaseConfig selects the store driver and DSN.
type DatabaseConfig struct {
	Driver string `envconfig:"DRIVER" default:"sqlite"`
	DSN    string `envconfig:"DSN" default:"file:licenses.db?cache=shared&_fk=1"`
}

// CacheConfig selects the cache backend and its parameters.
type CacheConfig struct {
	Backend            string        `envconfig:"BACKEND" default:"memory"`
	TTL                time.Duration `envconfig:"TTL" default:"5m"`
	Capacity           int           `envconfig:"CAPACITY" default:"10000"`
	NumShards          int           `envconfig:"NUM_SHARDS" default:"64"`
	EvictionPercentage int           `envconfig:"EVICTION_PERCENTAGE" default:"10"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case store.DriverSQLite, store.DriverPostgres:
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	if err := c.Cache.ToCache().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("config: unknown logging format %q", c.Logging.Format)
	}
	return nil
}

// ToCache converts the env-facing cache section to the cache package Config.
func (c CacheConfig) ToCache() cache.Config {
	return cache.Config{
		Backend:            c.Backend,
		TTL:                c.TTL,
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		EvictionPercentage: c.EvictionPercentage,
	}
}
