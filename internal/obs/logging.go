// Package obs contains observability utilities such as logging.
package obs

import (
	"io"
	"log/slog"
	"os"
)

// Logger is the global structured logger used by the client.
//
// Logger is exported to allow other packages to use it for logging.
var Logger = newLogger(os.Stdout, slog.LevelInfo)

// InitLogger initializes the global Logger with JSON handler at info level.
//
// InitLogger is exported to allow other packages to initialize the Logger.
func InitLogger() {
	Logger = newLogger(os.Stdout, slog.LevelInfo)
}

// InitLoggerTo initializes the global Logger writing to w at the named level
// (debug, info, warn, error). Unknown levels fall back to info.
func InitLoggerTo(w io.Writer, level string) {
	Logger = newLogger(w, ParseLevel(level))
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(level string) slog.Level {
	switch level {
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

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}
