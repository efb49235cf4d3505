// Package logx contains slog helpers: a no-op handler, request-id
// plumbing and a logging round-tripper for HTTP clients.
package logx

import (
	"context"

	"golang.org/x/exp/slog"
)

type noop struct{}

// NoOp returns a handler that discards all records.
func NoOp() slog.Handler { return noop{} }

func (noop) Enabled(context.Context, slog.Level) bool  { return false }
func (noop) Handle(context.Context, slog.Record) error { return nil }
func (n noop) WithAttrs([]slog.Attr) slog.Handler      { return n }
func (n noop) WithGroup(string) slog.Handler           { return n }

type requestIDKey struct{}

// ContextWithRequestID returns a new context with the given request ID.
func ContextWithRequestID(parent context.Context, reqID string) context.Context {
	return context.WithValue(parent, requestIDKey{}, reqID)
}

// RequestIDFromContext returns request id from context.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(requestIDKey{}).(string)
	return v, ok
}

// RequestIDHandler annotates every record with the request id from the
// context, if present.
type RequestIDHandler struct {
	slog.Handler
}

// Handle implements slog.Handler interface.
func (h RequestIDHandler) Handle(ctx context.Context, rec slog.Record) error {
	if reqID, ok := RequestIDFromContext(ctx); ok {
		rec.AddAttrs(slog.String("request_id", reqID))
	}
	return h.Handler.Handle(ctx, rec)
}

// WithGroup returns a new handler with the given group.
func (h RequestIDHandler) WithGroup(group string) slog.Handler {
	return RequestIDHandler{Handler: h.Handler.WithGroup(group)}
}

// WithAttrs returns a new handler with the given attributes.
func (h RequestIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return RequestIDHandler{Handler: h.Handler.WithAttrs(attrs)}
}
