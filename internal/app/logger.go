package app

import (
	"io"
	"log/slog"
)

// newLogger builds an isolated logger writing to outW; the global slog
// default is left alone. Unknown levels fall back to info and any format
// other than "json" selects text.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(outW, opts)
	if formatStr == "json" {
		handler = slog.NewJSONHandler(outW, opts)
	}
	return slog.New(handler).With("component", "layerstage")
}
