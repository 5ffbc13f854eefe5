package logging

import (
	"io"
	"log/slog"
	"os"
)

// New creates a JSON slog-backed Logger configured at the provided level.
// If the level string is invalid it defaults to info.
func New(level string) Logger {
	lvl := new(slog.LevelVar)
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl.Set(slog.LevelInfo)
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return NewSlogLogger(slog.New(handler))
}

// Discard returns a logger that drops all output. Useful for tests.
func Discard() Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})
	return NewSlogLogger(slog.New(handler))
}
