// Package logging wires the process logger: JSON to stdout from boot, then a
// fan-out that adds the Postgres sink once the database is up.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs the stdout JSON logger used from boot until the database
// connection exists. LOG_LEVEL (debug/info/warn/error) overrides the default.
func Setup() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: levelFromEnv(),
	})
	slog.SetDefault(slog.New(handler))
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
