package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Library.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("library: %w", err))
	}
	if err := c.Player.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("player: %w", err))
	}
	if err := c.Stats.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("stats: %w", err))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}

	return errors.Join(errs...)
}

// Validate checks LibraryConfig for errors.
func (c *LibraryConfig) Validate() error {
	for _, p := range c.Paths {
		if strings.TrimSpace(p) == "" {
			return errors.New("paths must not contain empty entries")
		}
	}
	if c.DebounceMs < 0 {
		return errors.New("debounce_ms must be non-negative")
	}
	return nil
}

// Validate checks PlayerConfig for errors.
func (c *PlayerConfig) Validate() error {
	switch c.Engine {
	case "", EngineBeep, EngineMock:
		// valid
	default:
		return fmt.Errorf("invalid engine: %s (must be beep or mock)", c.Engine)
	}
	if c.TickIntervalMs < 0 {
		return errors.New("tick_interval_ms must be non-negative")
	}
	return nil
}

// Validate checks StatsConfig for errors.
func (c *StatsConfig) Validate() error {
	switch c.Driver {
	case "", DriverPreferences:
		// valid
	case DriverSQLite, DriverMySQL:
		if c.DSN == "" {
			return fmt.Errorf("dsn is required for the %s driver", c.Driver)
		}
	case DriverRedis:
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required for the redis driver")
		}
		if c.Redis.DB < 0 {
			return errors.New("redis.db must be non-negative")
		}
	default:
		return fmt.Errorf("invalid driver: %s (must be sqlite, mysql, redis, or preferences)", c.Driver)
	}
	return nil
}

// Validate checks LogConfig for errors.
func (c *LogConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Level)
	}
	switch c.Format {
	case "", "text", "json":
		// valid
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Format)
	}
	return nil
}
