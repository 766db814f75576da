package log

import (
	"context"
	"log/slog"
	"time"
)

type contextKey string

const loggerContextKey contextKey = "logger"

// WithLogger returns a copy of ctx carrying logger
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// FromContext extracts the logger stored by WithLogger
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// Step logs the start of an operation and returns a func logging its end
// together with the elapsed time.
func (l *Logger) Step(ctx context.Context, op string) func(err error) {
	start := time.Now()
	l.DebugContext(ctx, "Step started", FieldOperation, op)

	return func(err error) {
		fields := NewFields().
			WithOperation(op).
			WithDuration(time.Since(start)).
			WithError(err)
		if err != nil {
			l.ErrorContext(ctx, "Step failed", fields.ToSlice()...)
			return
		}
		l.InfoContext(ctx, "Step completed", fields.ToSlice()...)
	}
}
