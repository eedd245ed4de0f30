package types

import "context"

type contextKey string

const invocationIDKey contextKey = "invocation_id"

// WithInvocationID stores the scheduler invocation ID in the context. The
// ID is the Lambda request ID when present, otherwise a generated run ID;
// it is used for log correlation and outbound trace headers only.
func WithInvocationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, invocationIDKey, id)
}

// GetInvocationID retrieves the invocation ID from the context. Returns
// the empty string when none is set.
func GetInvocationID(ctx context.Context) string {
	id, _ := ctx.Value(invocationIDKey).(string)
	return id
}
