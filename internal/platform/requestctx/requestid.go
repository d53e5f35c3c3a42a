// Package requestctx carries per-request values through context.
package requestctx

import "context"

type requestIDContextKey struct{}

// WithRequestID stores the correlation id of an HTTP request in context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// RequestIDFromContext returns the stored request id, or "-" when absent.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return "-"
	}
	value, _ := ctx.Value(requestIDContextKey{}).(string)
	if value == "" {
		return "-"
	}
	return value
}
