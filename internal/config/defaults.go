package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Player engines.
const (
	EngineBeep = "beep"
	EngineMock = "mock"
)

// Stats drivers.
const (
	DriverSQLite      = "sqlite"
	DriverMySQL       = "mysql"
	DriverRedis       = "redis"
	DriverPreferences = "preferences"
)

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Library: LibraryConfig{
			Paths:      []string{filepath.Join(homeDir(), "Music")},
			Extensions: []string{".mp3", ".wav", ".flac", ".ogg"},
			DebounceMs: 500,
		},
		Player: PlayerConfig{
			Engine:         EngineBeep,
			TickIntervalMs: 1000,
		},
		Stats: StatsConfig{
			Driver: DriverSQLite,
			DSN:    filepath.Join(dataDir(), "stats.db"),
			Redis: RedisConfig{
				Addr:      "127.0.0.1:6379",
				KeyPrefix: "audiotracker:",
			},
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// ApplyDefaults fills in zero values with sensible defaults and expands "~" in paths.
func (c *Config) ApplyDefaults() {
	d := Default()

	// Library
	if len(c.Library.Paths) == 0 {
		c.Library.Paths = d.Library.Paths
	}
	for i, p := range c.Library.Paths {
		c.Library.Paths[i] = expandHome(p)
	}
	if len(c.Library.Extensions) == 0 {
		c.Library.Extensions = d.Library.Extensions
	}
	if c.Library.DebounceMs == 0 {
		c.Library.DebounceMs = d.Library.DebounceMs
	}

	// Player
	if c.Player.Engine == "" {
		c.Player.Engine = d.Player.Engine
	}
	if c.Player.TickIntervalMs == 0 {
		c.Player.TickIntervalMs = d.Player.TickIntervalMs
	}

	// Stats
	if c.Stats.Driver == "" {
		c.Stats.Driver = d.Stats.Driver
	}
	if c.Stats.DSN == "" && c.Stats.Driver == DriverSQLite {
		c.Stats.DSN = d.Stats.DSN
	}
	if c.Stats.Driver == DriverSQLite {
		c.Stats.DSN = expandHome(c.Stats.DSN)
	}
	if c.Stats.Redis.Addr == "" {
		c.Stats.Redis.Addr = d.Stats.Redis.Addr
	}
	if c.Stats.Redis.KeyPrefix == "" {
		c.Stats.Redis.KeyPrefix = d.Stats.Redis.KeyPrefix
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Log.File != "" {
		c.Log.File = expandHome(c.Log.File)
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = d.Log.MaxSizeMB
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = d.Log.MaxBackups
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = d.Log.MaxAgeDays
	}
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// dataDir follows XDG_DATA_HOME, defaulting to ~/.local/share.
func dataDir() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		base = filepath.Join(homeDir(), ".local", "share")
	}
	return filepath.Join(base, "audiotracker")
}

func expandHome(path string) string {
	if path == "~" {
		return homeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}
