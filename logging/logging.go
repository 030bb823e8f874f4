// Package logging holds the process-wide structured logger. Everything logs
// to stderr: on the agent side stdout carries protocol frames and nothing
// else, so writing a log line to stdout would corrupt the stream.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu     sync.RWMutex
	logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
)

// Logger returns the current logger.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// SetLogger replaces the process-wide logger.
func SetLogger(l *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// Configure installs a JSON logger at the given level writing to w.
func Configure(w io.Writer, level slog.Level) {
	SetLogger(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch s {
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

// Debug logs at debug level on the process-wide logger.
func Debug(msg string, args ...any) { Logger().Debug(msg, args...) }

// Info logs at info level on the process-wide logger.
func Info(msg string, args ...any) { Logger().Info(msg, args...) }

// Warn logs at warn level on the process-wide logger.
func Warn(msg string, args ...any) { Logger().Warn(msg, args...) }

// Error logs at error level on the process-wide logger.
func Error(msg string, args ...any) { Logger().Error(msg, args...) }
