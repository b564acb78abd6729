package ctxkeys

import "context"

// contextKey 用于在 context 中存储值的键类型
type contextKey string

const (
	requestIDKey contextKey = "request_id"
	debugKey     contextKey = "debug"
)

// WithRequestID 设置 RequestID
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID 获取 RequestID
func RequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(requestIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithDebug marks the request as running in debug mode. Debug only adds
// diagnostic data to error responses.
func WithDebug(ctx context.Context, debug bool) context.Context {
	return context.WithValue(ctx, debugKey, debug)
}

// Debug 是否处于调试模式
func Debug(ctx context.Context) bool {
	v, _ := ctx.Value(debugKey).(bool)
	return v
}
