// Package config carries the ambient, cross-cutting setup shared by both
// binaries in this repo: logger construction and small env-default
// helpers in the teacher's getEnv idiom (internal/config/config.go).
// Per-run parameters (gRPC endpoints, domain list, schema IDs, interval)
// are not modeled here — each binary owns its own flag.FlagSet, the way
// cmd/loadtest does, since this system is CLI-flag-driven rather than
// YAML-config-driven.
package config

import (
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewLogger builds the process-wide slog.Logger. format is "json" or
// "ansi"; ansi is only honored when stderr is a terminal, otherwise it
// silently falls back to JSON so piped/production output stays
// machine-parseable.
func NewLogger(format, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if format == "ansi" && term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func parseLevel(level string) slog.Level {
	switch level {
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

// GetEnv returns the environment variable named key, or fallback if unset
// or empty.
func GetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
