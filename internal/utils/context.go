package utils

import "context"

type contextKey string

const requestIDKey contextKey = "reqid"

func WithRequestID(ctx context.Context, reqID string) context.Context {
	return context.WithValue(ctx, requestIDKey, reqID)
}

// RequestID returns the ID stored by WithRequestID, or "" when there is none.
func RequestID(ctx context.Context) string {
	reqID, _ := ctx.Value(requestIDKey).(string)
	return reqID
}
