// Package config loads the audiotracker configuration from TOML, .env and the environment.
package config

// Config is the root configuration.
type Config struct {
	Library LibraryConfig `toml:"library"`
	Player  PlayerConfig  `toml:"player"`
	Stats   StatsConfig   `toml:"stats"`
	Log     LogConfig     `toml:"log"`
}

// LibraryConfig selects the music directories.
type LibraryConfig struct {
	Paths         []string `toml:"paths"`
	Extensions    []string `toml:"extensions"`
	IncludeHidden bool     `toml:"include_hidden"`
	Watch         bool     `toml:"watch"`
	DebounceMs    int      `toml:"debounce_ms"`
}

// PlayerConfig configures the playback engine.
type PlayerConfig struct {
	Engine         string `toml:"engine"` // "beep" or "mock"
	TickIntervalMs int    `toml:"tick_interval_ms"`
	Shuffle        bool   `toml:"shuffle"`
	Repeat         bool   `toml:"repeat"`
}

// StatsConfig selects the play-count store.
type StatsConfig struct {
	Driver string `toml:"driver"` // "sqlite", "mysql", "redis" or "preferences"
	DSN    string `toml:"dsn"`

	Redis RedisConfig `toml:"redis"`
}

// RedisConfig holds the redis connection used by the "redis" driver.
type RedisConfig struct {
	Addr      string `toml:"addr"`
	Password  string `toml:"password"`
	DB        int    `toml:"db"`
	KeyPrefix string `toml:"key_prefix"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}
