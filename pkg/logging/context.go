package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey int

const (
	// loggerKey is the context key for the logger.
	loggerKey contextKey = iota
	// mutationIDKey is the context key for the temp id of an in-flight mutation.
	mutationIDKey
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the logger from context, or returns the default logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return Default()
	}

	if logger, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok && logger != nil {
		return logger
	}

	return Default()
}

// Ctx returns a logger from the context or the default logger.
// This is a shorter alias for FromContext.
func Ctx(ctx context.Context) *zerolog.Logger {
	return FromContext(ctx)
}

// WithMutationID tags the context and its logger with the temp id of the
// mutation being applied or replayed, so every log line on that path carries it.
func WithMutationID(ctx context.Context, tempID string) context.Context {
	ctx = context.WithValue(ctx, mutationIDKey, tempID)

	logger := FromContext(ctx)
	newLogger := logger.With().Str("temp_id", tempID).Logger()
	return WithLogger(ctx, &newLogger)
}

// MutationID extracts the mutation temp id from context.
func MutationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(mutationIDKey).(string); ok {
		return id
	}
	return ""
}
