package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey int

const loggerKey contextKey = iota

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

// WithField adds a single string field to the logger in the context.
func WithField(ctx context.Context, key, value string) context.Context {
	logger := FromContext(ctx).With().Str(key, value).Logger()
	return WithLogger(ctx, &logger)
}

// Field names set by the context helpers.
const (
	RunField       = "run_id"
	RecordField    = "record_id"
	LocationField  = "location"
	OperationField = "operation"
)

// WithRun tags every log line of a reconciliation run.
func WithRun(ctx context.Context, runID string) context.Context {
	return WithField(ctx, RunField, runID)
}

// WithRecord adds reference record context to the logger.
func WithRecord(ctx context.Context, recordID string) context.Context {
	return WithField(ctx, RecordField, recordID)
}

// WithLocation adds target document context to the logger.
func WithLocation(ctx context.Context, location string) context.Context {
	return WithField(ctx, LocationField, location)
}

// WithOperation names the run phase (persist, audit) in the logger.
func WithOperation(ctx context.Context, operation string) context.Context {
	return WithField(ctx, OperationField, operation)
}
