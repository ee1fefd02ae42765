// Package context carries request-scoped identifiers through context.Context.
package context

import (
	"context"

	"serialgen/internal/core/id"
)

// TraceContext identifies one request and the distributed trace it belongs to.
// TraceID is shared across services; RequestID is what clients quote in bug reports.
type TraceContext struct {
	TraceID   string
	SpanID    string
	RequestID string
}

type traceContextKey struct{}

// NewTraceContext fills the identifiers a caller did not supply.
func NewTraceContext(traceID, requestID string) *TraceContext {
	if traceID == "" {
		traceID = id.New().String()
	}
	if requestID == "" {
		requestID = id.Short()
	}
	return &TraceContext{TraceID: traceID, SpanID: id.Short(), RequestID: requestID}
}

// WithTrace stores trace in ctx.
func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// GetTrace returns the request trace, or nil outside a request.
func GetTrace(ctx context.Context) *TraceContext {
	trace, _ := ctx.Value(traceContextKey{}).(*TraceContext)
	return trace
}

// GetRequestID returns the request id, or "" outside a request.
func GetRequestID(ctx context.Context) string {
	if trace := GetTrace(ctx); trace != nil {
		return trace.RequestID
	}
	return ""
}
