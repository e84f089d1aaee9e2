package logger

import (
	"context"

	"go.uber.org/zap"
)

// Field keys shared by request-scoped loggers, so log queries can join a
// request line with the search and document lines it produced.
const (
	FieldComponent = "component"
	FieldDocID     = "doc_id"
)

type ctxKey struct{}

// ContextWithLogger attaches the request logger (already tagged with request_id).
func ContextWithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the request logger, or a no-op logger outside a request
// (SDK calls, background view writes).
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// ForComponent tags the request logger with the pipeline stage owner, e.g. "search".
func ForComponent(ctx context.Context, name string) *zap.Logger {
	return FromContext(ctx).With(zap.String(FieldComponent, name))
}

// ForDocument tags the request logger with a document id.
func ForDocument(ctx context.Context, id string) *zap.Logger {
	return FromContext(ctx).With(zap.String(FieldDocID, id))
}
