// Package logging is a thin leveled wrapper around log/slog: a
// process-wide Debug/Info/Error/Warn logger writing to stderr only
// (important when a platform frontend owns stdout).
package logging

import (
	"log/slog"
	"os"
)

var globalLogger *slog.Logger
var debugEnabled bool

// Initialize sets up the global logger with debug mode setting. All
// logging goes to stderr so it never interferes with a platform
// frontend's own stdio protocol.
func Initialize(debugMode bool) {
	debugEnabled = debugMode
	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}
	globalLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func logger() *slog.Logger {
	if globalLogger == nil {
		Initialize(false)
	}
	return globalLogger
}

// Info logs an informational message (always shown).
func Info(msg string, args ...interface{}) {
	logger().Info(msg, args...)
}

// Debug logs a debug message (only shown when debug mode is enabled).
func Debug(msg string, args ...interface{}) {
	logger().Debug(msg, args...)
}

// Error logs an error message (always shown).
func Error(msg string, args ...interface{}) {
	logger().Error(msg, args...)
}

// Warn logs a warning message (always shown).
func Warn(msg string, args ...interface{}) {
	logger().Warn(msg, args...)
}

// IsDebugEnabled returns true if debug logging is enabled.
func IsDebugEnabled() bool {
	return debugEnabled
}
