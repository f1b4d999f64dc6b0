package logging

import "log/slog"

// EnableTrace turns on per-field change tracking logs. Off by default.
var EnableTrace = false

// Trace logs at DEBUG level through logger, only when EnableTrace is set.
func Trace(logger *slog.Logger, msg string, args ...any) {
	if EnableTrace {
		logger.Debug(msg, args...)
	}
}

// TraceDefault logs to the default logger when EnableTrace is set.
func TraceDefault(msg string, args ...any) {
	if EnableTrace {
		slog.Debug(msg, args...)
	}
}
