package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// RedisConfig selects the Redis session store.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"TICTACBOT_REDIS_ADDR"`
	Password string `yaml:"password" env:"TICTACBOT_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"TICTACBOT_REDIS_DB"`
}

// StorageConfig selects where sessions and accounts live.
type StorageConfig struct {
	// Backend is one of memory, sqlite, redis.
	Backend    string      `yaml:"backend" env:"TICTACBOT_STORAGE_BACKEND"`
	SQLitePath string      `yaml:"sqlite_path" env:"TICTACBOT_SQLITE_PATH"`
	Redis      RedisConfig `yaml:"redis"`
}

// ExpiryConfig controls the janitor that removes stale pending games.
type ExpiryConfig struct {
	Enabled  bool          `yaml:"enabled" env:"TICTACBOT_EXPIRY_ENABLED"`
	MaxAge   time.Duration `yaml:"max_age" env:"TICTACBOT_EXPIRY_MAX_AGE"`
	Interval time.Duration `yaml:"interval" env:"TICTACBOT_EXPIRY_INTERVAL"`
}

// Config is the full application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" env:"TICTACBOT_LISTEN"`
	// Prefix is the chat command prefix.
	Prefix string `yaml:"prefix" env:"TICTACBOT_PREFIX"`
	// Admins may use the money-grant command.
	Admins []string `yaml:"admins" env:"TICTACBOT_ADMINS" envSeparator:","`
	// Debug enables verbose logging.
	Debug bool `yaml:"debug" env:"TICTACBOT_DEBUG"`

	Storage StorageConfig `yaml:"storage"`
	Expiry  ExpiryConfig  `yaml:"expiry"`
}

// Default returns the configuration used when nothing is specified.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		Prefix: "!",
		Storage: StorageConfig{
			Backend:    BackendMemory,
			SQLitePath: "tictacbot.db",
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		Expiry: ExpiryConfig{
			MaxAge:   24 * time.Hour,
			Interval: time.Hour,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variable overrides, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail at runtime.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}
	if c.Storage.Backend == BackendSQLite && c.Storage.SQLitePath == "" {
		return fmt.Errorf("%w: sqlite backend requires a path", ErrInvalidConfig)
	}
	if c.Storage.Backend == BackendRedis && c.Storage.Redis.Addr == "" {
		return fmt.Errorf("%w: redis backend requires an address", ErrInvalidConfig)
	}
	if c.Prefix == "" {
		return fmt.Errorf("%w: command prefix cannot be empty", ErrInvalidConfig)
	}
	if c.Expiry.Enabled && (c.Expiry.MaxAge <= 0 || c.Expiry.Interval <= 0) {
		return fmt.Errorf("%w: expiry requires positive max_age and interval", ErrInvalidConfig)
	}
	return nil
}
