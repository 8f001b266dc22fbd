package framio

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with framio-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithCategory adds a category field to the logger.
func (l *Logger) WithCategory(category string) *Logger {
	return &Logger{
		Logger: l.Logger.With("category", category),
	}
}

// LogOpen logs a dataset open.
func (l *Logger) LogOpen(ctx context.Context, files int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "open failed",
			"files", files,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "dataset opened",
			"files", files,
		)
	}
}

// LogCategoryInit logs the lazy initialization of a category.
func (l *Logger) LogCategoryInit(ctx context.Context, category string, collections int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "category init failed",
			"category", category,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "category initialized",
			"category", category,
			"collections", collections,
		)
	}
}

// LogRead logs a frame read.
func (l *Logger) LogRead(ctx context.Context, category string, entry uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "read failed",
			"category", category,
			"entry", entry,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "frame read",
			"category", category,
			"entry", entry,
		)
	}
}
