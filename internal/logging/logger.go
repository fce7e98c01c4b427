// Package logging provides structured logging configuration using log/slog.
//
// Load runs are identified by a run ID; ForRun returns a logger that
// stamps every entry with it so the records of one run can be
// correlated across a long import.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup configures the global slog logger based on level and format.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
//
// Use "json" format in production for machine parsing (ELK, CloudWatch, etc.)
// Use "text" format in development for human readability.
func Setup(level, format string) {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// ForRun returns a logger that includes run_id in all log entries.
func ForRun(runID string) *slog.Logger {
	return slog.Default().With("run_id", runID)
}

// WithFields returns a logger with additional structured fields.
//
// This is useful for creating operation-specific loggers that carry
// consistent context through a multi-step process.
//
// Usage:
//
//	loadLogger := logging.WithFields(
//	    "run_id", runID,
//	    "file", path,
//	)
//	loadLogger.Info("load started")
//	// ... later ...
//	loadLogger.Info("load committed", "records", n)
func WithFields(args ...any) *slog.Logger {
	return slog.Default().With(args...)
}
