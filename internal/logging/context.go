// Archivarius - MediStock Inventory Backup Engine
// Copyright 2026 MediStock Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medistock/archivarius

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Context keys for logging.
type contextKey string

const (
	// operationIDKey is the context key for backup operation IDs.
	operationIDKey contextKey = "operation_id"

	// loggerKey is the context key for storing a logger instance.
	loggerKey contextKey = "logger"
)

// GenerateOperationID creates a new unique operation ID.
// Returns the first 8 characters of a UUID for readability; every
// engine entry point tags its logs with one so a single backup run
// can be grepped out of interleaved output.
func GenerateOperationID() string {
	return uuid.New().String()[:8]
}

// ContextWithOperationID returns a new context with the given operation ID.
//
//	ctx = logging.ContextWithOperationID(ctx, logging.GenerateOperationID())
func ContextWithOperationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, operationIDKey, id)
}

// ContextWithNewOperationID returns a context with a newly generated operation ID.
func ContextWithNewOperationID(ctx context.Context) context.Context {
	return ContextWithOperationID(ctx, GenerateOperationID())
}

// OperationIDFromContext retrieves the operation ID from context.
// Returns empty string if not present.
func OperationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(operationIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithLogger stores a logger in the context.
// Useful for passing pre-configured loggers into the engine.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext retrieves a logger from context.
// Returns the global logger if no logger is stored in context.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return Logger()
}

// Ctx returns a logger with the operation ID automatically added.
// This is the recommended way to log inside engine operations.
//
//	logging.Ctx(ctx).Info().Msg("Snapshot serialized")
//	// Output: {"level":"info","operation_id":"abc12345","message":"Snapshot serialized"}
func Ctx(ctx context.Context) *zerolog.Logger {
	logger := LoggerFromContext(ctx)

	contextLogger := logger.With().Logger()
	if opID := OperationIDFromContext(ctx); opID != "" {
		contextLogger = contextLogger.With().Str("operation_id", opID).Logger()
	}

	return &contextLogger
}

// CtxWith returns a logger context builder with the operation ID pre-populated.
// Use this when you need to add additional fields beyond the operation ID.
//
//	logger := logging.CtxWith(ctx).Str("backup_id", id).Logger()
//	logger.Info().Msg("Integrity test passed")
func CtxWith(ctx context.Context) zerolog.Context {
	logger := LoggerFromContext(ctx)
	logCtx := logger.With()

	if opID := OperationIDFromContext(ctx); opID != "" {
		logCtx = logCtx.Str("operation_id", opID)
	}

	return logCtx
}

// WithComponent creates a child logger with a component field. Use this for
// code that logs outside any operation context, like breaker callbacks.
//
//	sinkLog := logging.WithComponent("sink")
//	sinkLog.Warn().Msg("Sink circuit breaker state changed")
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}
