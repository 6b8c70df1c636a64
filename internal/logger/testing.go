package logger

import (
	"log/slog"
	"os"
)

// NewTestLogger creates a quiet logger for tests (WARN and above on stdout).
// TEST_LOG_LEVEL overrides the level, e.g. TEST_LOG_LEVEL=debug go test ./...
func NewTestLogger() *slog.Logger {
	return NewLogger(Config{
		Level:  ParseLevel(os.Getenv("TEST_LOG_LEVEL"), slog.LevelWarn),
		Format: "text",
		Output: os.Stdout,
	})
}
