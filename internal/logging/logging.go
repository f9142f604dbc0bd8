package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs a process-wide default logger so packages can rely on
// slog.Default().
func Setup(level string) {
	slog.SetDefault(New(level))
}

func New(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(h)
}
