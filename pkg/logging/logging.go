// Package logging builds the process logger from configuration.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Config holds logging configuration.
type Config struct {
	// Level is "debug", "info", "warn", or "error".
	Level string

	// Format is "text" or "json".
	Format string

	// Output defaults to os.Stderr.
	Output io.Writer
}

// New creates a slog.Logger from the configuration.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler)
}

// Nop returns a logger that discards everything. Use it in tests when
// a logger is required but output is noise.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel maps a level string onto slog's levels, defaulting to
// info for anything unrecognized.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug", "DEBUG":
		return slog.LevelDebug
	case "warn", "WARN", "warning":
		return slog.LevelWarn
	case "error", "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
