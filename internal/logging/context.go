package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldOperation is the key for the invoked action (send, receive, peek).
	FieldOperation = "operation"
	// FieldQueue is the key for the target queue name.
	FieldQueue = "queue"
	// FieldBackend is the key for the transport backend name.
	FieldBackend = "backend"
)

type ctxKey int

const (
	operationKey ctxKey = iota
	queueKey
)

// WithInvocation stores the action and queue on ctx so loggers derived with
// WithContext tag every line with them.
func WithInvocation(ctx context.Context, operation, queueName string) context.Context {
	ctx = context.WithValue(ctx, operationKey, operation)
	return context.WithValue(ctx, queueKey, queueName)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if op, ok := ctx.Value(operationKey).(string); ok && op != "" {
		fields = append(fields, slog.String(FieldOperation, op))
	}
	if name, ok := ctx.Value(queueKey).(string); ok && name != "" {
		fields = append(fields, slog.String(FieldQueue, name))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
