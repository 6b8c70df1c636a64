package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/tejashwikalptaru/audiotracker/internal/logger"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "AUDIOTRACKER_"

// Load reads configuration from the standard location with .env and environment overrides.
// Search order: ./audiotracker.toml, $XDG_CONFIG_HOME/audiotracker/config.toml,
// ~/.config/audiotracker/config.toml. A missing file is not an error.
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if path := findConfigFile(); path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)
	cfg.ApplyDefaults()
	return cfg, nil
}

// LoadFrom reads configuration from a specific file path.
func LoadFrom(path string) (*Config, error) {
	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := decodeFile(path, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	cfg.ApplyDefaults()
	return cfg, nil
}

// loadDotEnv loads a .env file without overriding variables that are already set.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

func decodeFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("%s: %s", path, strict.String())
		}
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// DefaultPath returns the config file location under XDG_CONFIG_HOME.
func DefaultPath() string {
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(homeDir(), ".config")
	}
	return filepath.Join(xdgConfig, "audiotracker", "config.toml")
}

// findConfigFile returns the first existing config file path.
func findConfigFile() string {
	paths := []string{"audiotracker.toml", DefaultPath()}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Write saves cfg as TOML, creating the parent directory.
func Write(path string, cfg *Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	// Library
	if v := os.Getenv(EnvPrefix + "LIBRARY_PATHS"); v != "" {
		cfg.Library.Paths = filepath.SplitList(v)
	}
	if v := os.Getenv(EnvPrefix + "LIBRARY_WATCH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Library.Watch = b
		}
	}

	// Player
	if v := os.Getenv(EnvPrefix + "ENGINE"); v != "" {
		cfg.Player.Engine = strings.ToLower(v)
	}
	if v := os.Getenv(EnvPrefix + "TICK_INTERVAL_MS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Player.TickIntervalMs = i
		}
	}

	// Stats
	if v := os.Getenv(EnvPrefix + "STATS_DRIVER"); v != "" {
		cfg.Stats.Driver = strings.ToLower(v)
	}
	if v := os.Getenv(EnvPrefix + "STATS_DSN"); v != "" {
		cfg.Stats.DSN = v
	}
	if v := os.Getenv(EnvPrefix + "REDIS_ADDR"); v != "" {
		cfg.Stats.Redis.Addr = v
	}
	if v := os.Getenv(EnvPrefix + "REDIS_PASSWORD"); v != "" {
		cfg.Stats.Redis.Password = v
	}
	if v := os.Getenv(EnvPrefix + "REDIS_DB"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Stats.Redis.DB = i
		}
	}

	// Log
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv(EnvPrefix + "LOG_FORMAT"); v != "" {
		cfg.Log.Format = strings.ToLower(v)
	}
	if v := os.Getenv(EnvPrefix + "LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
}

// Logger converts the log section into a logger configuration.
func (c LogConfig) Logger() logger.Config {
	return logger.Config{
		Level:      logger.ParseLevel(c.Level, slog.LevelInfo),
		Format:     c.Format,
		File:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	}
}
