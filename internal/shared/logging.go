package shared

import (
	"io"
	"log/slog"
	"strings"
)

// InitLogger builds the process logger and installs it as the slog default.
// Logs go to w (stderr for the CLI); stdout carries command output.
func InitLogger(w io.Writer, format, level string) *slog.Logger {
	logger := NewLogger(w, format, level)
	slog.SetDefault(logger)
	return logger
}

func NewLogger(w io.Writer, format, level string) *slog.Logger {
	var h slog.Handler
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	if strings.ToLower(format) == "text" {
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	} else {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	}
	return slog.New(h)
}
