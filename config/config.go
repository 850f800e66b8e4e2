// Package config loads client settings from YAML or TOML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/efritz/memjoy"
	"github.com/efritz/memjoy/driver/redis"
)

const (
	// DriverMemcache selects the memcached text protocol driver.
	DriverMemcache = "memcache"

	// DriverRedis selects the Redis driver.
	DriverRedis = "redis"
)

type (
	// Config is the file representation of a client.
	Config struct {
		// ServerLocation is a "host:port" string. Several locations may be
		// separated by commas.
		ServerLocation string `yaml:"serverLocation" toml:"serverLocation"`

		// Servers lists additional locations.
		Servers []string `yaml:"servers" toml:"servers"`

		Driver       string           `yaml:"driver" toml:"driver"`
		Pool         PoolConfig       `yaml:"pool" toml:"pool"`
		Connection   ConnectionConfig `yaml:"connection" toml:"connection"`
		Redis        RedisConfig      `yaml:"redis" toml:"redis"`
		DebugLogging bool             `yaml:"debugLogging" toml:"debugLogging"`
		TimeoutMs    int              `yaml:"timeoutMs" toml:"timeoutMs"`
		Retries      int              `yaml:"retries" toml:"retries"`
		BaseDelayMs  int              `yaml:"baseDelayMs" toml:"baseDelayMs"`
	}

	// PoolConfig bounds the connection pool.
	PoolConfig struct {
		Min int `yaml:"min" toml:"min"`
		Max int `yaml:"max" toml:"max"`
	}

	// ConnectionConfig holds connection lifetime settings. Zero values
	// disable the corresponding timeout.
	ConnectionConfig struct {
		IdleTimeoutMs    int  `yaml:"idleTimeoutMs" toml:"idleTimeoutMs"`
		ConnectTimeoutMs int  `yaml:"connectTimeoutMs" toml:"connectTimeoutMs"`
		BorrowTimeoutMs  int  `yaml:"borrowTimeoutMs" toml:"borrowTimeoutMs"`
		EvictOnFailure   bool `yaml:"evictOnFailure" toml:"evictOnFailure"`
	}

	// RedisConfig holds settings specific to the Redis driver.
	RedisConfig struct {
		Password string `yaml:"password" toml:"password"`
		Database int    `yaml:"database" toml:"database"`
	}
)

// Default returns a configuration for a local memcached server.
func Default() *Config {
	return &Config{
		ServerLocation: "localhost:11211",
		Driver:         DriverMemcache,
		Pool: PoolConfig{
			Min: 0,
			Max: memjoy.DefaultPoolCapacity,
		},
		Connection: ConnectionConfig{
			ConnectTimeoutMs: 5000,
		},
		TimeoutMs: int(memjoy.DefaultTimeout / time.Millisecond),
		Retries:   memjoy.DefaultRetries,
	}
}

// Load reads a configuration file over the defaults. Files ending in .toml
// are parsed as TOML and everything else as YAML.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := Parse(data, filepath.Ext(path), cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Parse decodes data in the format indicated by the given file extension
// into cfg.
func Parse(data []byte, ext string, cfg *Config) error {
	switch strings.ToLower(ext) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parsing config file: %w", err)
		}

	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parsing config file: %w", err)
		}
	}

	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if len(c.Locations()) == 0 {
		return errors.New("serverLocation is required")
	}
	if c.Driver != DriverMemcache && c.Driver != DriverRedis {
		return fmt.Errorf("driver must be %q or %q", DriverMemcache, DriverRedis)
	}
	if c.Pool.Max < 1 {
		return errors.New("pool.max must be at least 1")
	}
	if c.Pool.Min < 0 || c.Pool.Min > c.Pool.Max {
		return errors.New("pool.min must be between 0 and pool.max")
	}
	if c.Connection.IdleTimeoutMs < 0 || c.Connection.ConnectTimeoutMs < 0 || c.Connection.BorrowTimeoutMs < 0 {
		return errors.New("connection timeouts must not be negative")
	}
	if c.TimeoutMs < 0 {
		return errors.New("timeoutMs must not be negative")
	}
	if c.Retries < 0 {
		return errors.New("retries must not be negative")
	}
	if c.BaseDelayMs < 0 {
		return errors.New("baseDelayMs must not be negative")
	}
	return nil
}

// Locations returns every configured server location.
func (c *Config) Locations() []string {
	locations := []string{}
	for _, location := range append(strings.Split(c.ServerLocation, ","), c.Servers...) {
		if location = strings.TrimSpace(location); location != "" {
			locations = append(locations, location)
		}
	}

	return locations
}

// Options converts the configuration into client options.
func (c *Config) Options() []memjoy.ConfigFunc {
	options := []memjoy.ConfigFunc{
		memjoy.WithPoolMin(c.Pool.Min),
		memjoy.WithPoolCapacity(c.Pool.Max),
		memjoy.WithIdleTimeout(milliseconds(c.Connection.IdleTimeoutMs)),
		memjoy.WithConnectTimeout(milliseconds(c.Connection.ConnectTimeoutMs)),
		memjoy.WithEvictOnFailure(c.Connection.EvictOnFailure),
		memjoy.WithDefaultTimeout(milliseconds(c.TimeoutMs)),
		memjoy.WithDefaultRetries(c.Retries),
		memjoy.WithDebugLogging(c.DebugLogging),
	}

	if c.Connection.BorrowTimeoutMs > 0 {
		options = append(options, memjoy.WithBorrowTimeout(milliseconds(c.Connection.BorrowTimeoutMs)))
	}

	if c.BaseDelayMs > 0 {
		options = append(options, memjoy.WithBaseDelay(milliseconds(c.BaseDelayMs)))
	}

	if c.Driver == DriverRedis {
		options = append(options, memjoy.WithDialerFactory(c.redisDialer))
	}

	return options
}

// NewClient validates the configuration and creates a client from it. The
// extra options are applied after the configured ones.
func NewClient(cfg *Config, extra ...memjoy.ConfigFunc) (memjoy.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return memjoy.NewClient(
		strings.Join(cfg.Locations(), ","),
		append(cfg.Options(), extra...)...,
	), nil
}

func (c *Config) redisDialer(addrs []string) memjoy.DialFunc {
	configs := []redis.ConfigFunc{
		redis.WithPassword(c.Redis.Password),
		redis.WithDatabase(c.Redis.Database),
	}

	if c.Connection.ConnectTimeoutMs > 0 {
		configs = append(configs, redis.WithConnectTimeout(milliseconds(c.Connection.ConnectTimeoutMs)))
	}

	return redis.NewDialer(addrs, configs...)
}

func milliseconds(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
