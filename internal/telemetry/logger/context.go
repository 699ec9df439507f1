package logger

import "context"

// contextKey is a type for context keys to avoid collisions.
type contextKey string

const (
	// loggerKey is the context key for the logger.
	loggerKey contextKey = "wi.logger"
	// operationIDKey is the context key for the per-invocation operation ID.
	operationIDKey contextKey = "wi.operation_id"
	// userKey is the context key for the acting user.
	userKey contextKey = "wi.user"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext extracts the logger from context.
// Returns the default logger if none is set.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

// WithOperationID adds an operation ID to the context. The CLI assigns one
// per command so audit entries and log lines can be correlated.
func WithOperationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, operationIDKey, id)
}

// OperationIDFromContext extracts the operation ID from context.
func OperationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(operationIDKey).(string); ok {
		return id
	}
	return ""
}

// WithUser adds the acting user to the context.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext extracts the acting user from context.
func UserFromContext(ctx context.Context) string {
	if u, ok := ctx.Value(userKey).(string); ok {
		return u
	}
	return ""
}

// L returns the logger carried by ctx, bound to ctx so every record it
// writes includes the operation ID and user stored there.
func L(ctx context.Context) Logger {
	return FromContext(ctx).WithContext(ctx)
}
