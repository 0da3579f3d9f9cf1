package logging

import (
	"log/slog"
	"os"
	"strings"
)

var level = new(slog.LevelVar)

// Init configures the process-wide slog logger. Call once at startup, before
// any store or manager is constructed.
//
// levelStr is one of "debug", "info", "warn", "error" (default "info").
// format is "text" or "json" (default "text"). Output goes to stderr so that
// command output on stdout stays machine-readable.
func Init(levelStr, format string) {
	setLevel(levelStr)

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// For returns a logger tagged with the given component name ("pebbledb",
// "checkpoints", "tables", ...). All loggers share the handler installed by
// Init; without Init they fall back to slog's default.
func For(component string) *slog.Logger {
	return slog.Default().With(slog.String("component", component))
}

func setLevel(s string) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
}
