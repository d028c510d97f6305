// Package logger provides structured logging using Go 1.21's log/slog.
// It sets up a JSON handler with service-level context and provides
// batch ID propagation through context.Context so every log line of one
// simulation run can be correlated.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
)

type ctxKey string

const batchIDKey ctxKey = "batch_id"

// Init creates and returns a structured logger for the given service.
// The logger outputs JSON to stdout with the service name embedded.
func Init(service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler).With(
		slog.String("service", service),
	)

	// Set as default so log/slog.Info() etc. also use structured output
	slog.SetDefault(logger)

	return logger
}

// WithBatchID stores a batch ID in the context for downstream propagation.
func WithBatchID(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, batchIDKey, batchID)
}

// BatchID extracts the batch ID from context. Returns "" if not set.
func BatchID(ctx context.Context) string {
	if v, ok := ctx.Value(batchIDKey).(string); ok {
		return v
	}
	return ""
}

// GenerateBatchID creates a batch ID from the run start time.
// Format: "batch-{unixNano}".
func GenerateBatchID(ts time.Time) string {
	return fmt.Sprintf("batch-%d", ts.UnixNano())
}

// WithBatch returns slog attributes including the batch ID from context.
// Usage: slog.Info("msg", logger.WithBatch(ctx)...)
func WithBatch(ctx context.Context) []any {
	bid := BatchID(ctx)
	if bid == "" {
		return nil
	}
	return []any{slog.String("batch_id", bid)}
}
