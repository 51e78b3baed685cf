package app

import (
	"io"
	"log/slog"
)

// newLogger builds the run's logger without touching the global default, so
// tests can run several apps side by side. Unknown levels fall back to info;
// the cli package rejects them before they get here.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if formatStr == "json" {
		handler = slog.NewJSONHandler(outW, opts)
	} else {
		handler = slog.NewTextHandler(outW, opts)
	}
	return slog.New(handler).With("app", "agentconfgen")
}
