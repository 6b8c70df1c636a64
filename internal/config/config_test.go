package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME and XDG dirs at a temp dir and runs the test there.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	for _, key := range []string{
		"LIBRARY_PATHS", "LIBRARY_WATCH", "ENGINE", "TICK_INTERVAL_MS", "STATS_DRIVER", "STATS_DSN",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "LOG_LEVEL", "LOG_FORMAT", "LOG_FILE",
	} {
		t.Setenv(EnvPrefix+key, "")
	}
	t.Chdir(dir)
	return dir
}

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{filepath.Join(dir, "Music")}, cfg.Library.Paths)
	assert.Equal(t, EngineBeep, cfg.Player.Engine)
	assert.Equal(t, 1000, cfg.Player.TickIntervalMs)
	assert.Equal(t, DriverSQLite, cfg.Stats.Driver)
	assert.Equal(t, filepath.Join(dir, "data", "audiotracker", "stats.db"), cfg.Stats.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, DefaultPath(), `
[library]
paths = ["~/tunes", "/srv/music"]
watch = true

[player]
engine = "mock"
shuffle = true

[stats]
driver = "redis"

[stats.redis]
addr = "cache:6379"
db = 2
`)

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{filepath.Join(dir, "tunes"), "/srv/music"}, cfg.Library.Paths)
	assert.True(t, cfg.Library.Watch)
	assert.Equal(t, EngineMock, cfg.Player.Engine)
	assert.True(t, cfg.Player.Shuffle)
	assert.Equal(t, DriverRedis, cfg.Stats.Driver)
	assert.Equal(t, "cache:6379", cfg.Stats.Redis.Addr)
	assert.Equal(t, 2, cfg.Stats.Redis.DB)
	assert.Equal(t, "audiotracker:", cfg.Stats.Redis.KeyPrefix)
	assert.Empty(t, cfg.Stats.DSN)
}

func TestLoad_LocalFileWins(t *testing.T) {
	isolate(t)
	writeConfig(t, DefaultPath(), "[player]\nengine = \"beep\"\n")
	writeConfig(t, "audiotracker.toml", "[player]\nengine = \"mock\"\n")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EngineMock, cfg.Player.Engine)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	writeConfig(t, DefaultPath(), "[player]\nengine = \"beep\"\n")
	t.Setenv(EnvPrefix+"ENGINE", "MOCK")
	t.Setenv(EnvPrefix+"LIBRARY_PATHS", "/a"+string(os.PathListSeparator)+"/b")
	t.Setenv(EnvPrefix+"STATS_DRIVER", "mysql")
	t.Setenv(EnvPrefix+"STATS_DSN", "user:pw@tcp(db:3306)/stats?parseTime=true")
	t.Setenv(EnvPrefix+"TICK_INTERVAL_MS", "250")
	t.Setenv(EnvPrefix+"REDIS_DB", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, EngineMock, cfg.Player.Engine)
	assert.Equal(t, []string{"/a", "/b"}, cfg.Library.Paths)
	assert.Equal(t, DriverMySQL, cfg.Stats.Driver)
	assert.Equal(t, "user:pw@tcp(db:3306)/stats?parseTime=true", cfg.Stats.DSN)
	assert.Equal(t, 250, cfg.Player.TickIntervalMs)
	assert.Equal(t, 0, cfg.Stats.Redis.DB)
}

func TestLoad_DotEnv(t *testing.T) {
	isolate(t)
	writeConfig(t, ".env", "AUDIOTRACKER_LOG_LEVEL=debug\nAUDIOTRACKER_LOG_FORMAT=json\n")
	// godotenv does not override variables that are already set, even when empty
	require.NoError(t, os.Unsetenv(EnvPrefix+"LOG_LEVEL"))
	require.NoError(t, os.Unsetenv(EnvPrefix+"LOG_FORMAT"))
	t.Cleanup(func() {
		_ = os.Unsetenv(EnvPrefix + "LOG_LEVEL")
		_ = os.Unsetenv(EnvPrefix + "LOG_FORMAT")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, slog.LevelDebug, cfg.Log.Logger().Level)
}

func TestLoadFrom_UnknownField(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.toml")
	writeConfig(t, path, "[player]\nvolume = 11\n")

	_, err := LoadFrom(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "volume")
}

func TestLoadFrom_Missing(t *testing.T) {
	dir := isolate(t)

	_, err := LoadFrom(filepath.Join(dir, "nope.toml"))
	assert.Error(t, err)
}

func TestWriteRoundTrip(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "out", "config.toml")

	want := Default()
	want.Player.Engine = EngineMock
	require.NoError(t, Write(path, want))

	got, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"bad engine", func(c *Config) { c.Player.Engine = "bass" }, "invalid engine"},
		{"negative tick", func(c *Config) { c.Player.TickIntervalMs = -1 }, "tick_interval_ms"},
		{"bad driver", func(c *Config) { c.Stats.Driver = "postgres" }, "invalid driver"},
		{"mysql without dsn", func(c *Config) { c.Stats.Driver = DriverMySQL; c.Stats.DSN = "" }, "dsn is required"},
		{"redis without addr", func(c *Config) { c.Stats.Driver = DriverRedis; c.Stats.Redis.Addr = "" }, "redis.addr"},
		{"preferences needs nothing", func(c *Config) { c.Stats.Driver = DriverPreferences; c.Stats.DSN = "" }, ""},
		{"empty library path", func(c *Config) { c.Library.Paths = []string{" "} }, "empty entries"},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "invalid log level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "invalid log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
