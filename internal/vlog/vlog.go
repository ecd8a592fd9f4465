// Package vlog builds the process-wide structured logger. All components
// derive their own logger from one root via logger.With("component", …),
// never constructing a fresh handler per package.
package vlog

import (
	"log/slog"
	"os"
	"strings"
)

// New builds a *slog.Logger from the configured level and format ("json"
// or "text"); unrecognized formats fall back to text.
func New(level, format string) *slog.Logger {
	handler := newHandler(format, parseLevel(level))
	return slog.New(handler)
}

func newHandler(format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.NewTextHandler(os.Stderr, opts)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
