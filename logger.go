package ipc

import "log/slog"

// Logger is the interface for structured logging, compatible with
// *slog.Logger. Supply an implementation with LoggerOption, use
// NopLogger to silence the library, or leave unset for slog's default.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs.
	Debug(msg string, args ...any)
	// Info logs an info-level message with optional key-value pairs.
	Info(msg string, args ...any)
	// Warn logs a warning-level message with optional key-value pairs.
	Warn(msg string, args ...any)
	// Error logs an error-level message with optional key-value pairs.
	Error(msg string, args ...any)
}

// defaultLogger returns the default slog logger from the standard library.
func defaultLogger() Logger {
	return slog.Default()
}

// NopLogger discards everything logged to it.
type NopLogger struct{}

func (NopLogger) Debug(msg string, args ...any) {}
func (NopLogger) Info(msg string, args ...any)  {}
func (NopLogger) Warn(msg string, args ...any)  {}
func (NopLogger) Error(msg string, args ...any) {}
