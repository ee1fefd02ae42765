package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	appctx "serialgen/internal/core/context"
)

// Correlation headers. Both are echoed on every response.
const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

// Gin keys holding the correlation ids for handlers that only see *gin.Context.
const (
	keyTraceID   = "trace_id"
	keyRequestID = "request_id"
)

// maxIDLen caps client-supplied ids before they reach logs and headers.
const maxIDLen = 128

var propagator = propagation.TraceContext{}

// Trace resolves the request and trace ids and puts them into the request context.
// A W3C traceparent header takes precedence over X-Trace-ID; its span context is
// kept in the request context so store spans join the caller's trace.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		traceID := headerID(c, HeaderTraceID)
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			traceID = sc.TraceID().String()
		}

		tc := appctx.NewTraceContext(traceID, headerID(c, HeaderRequestID))
		c.Request = c.Request.WithContext(appctx.WithTrace(ctx, tc))

		c.Set(keyTraceID, tc.TraceID)
		c.Set(keyRequestID, tc.RequestID)
		c.Header(HeaderRequestID, tc.RequestID)
		c.Header(HeaderTraceID, tc.TraceID)

		c.Next()
	}
}

// headerID returns a client-supplied id, or "" when it is missing or unusable.
func headerID(c *gin.Context, name string) string {
	v := c.GetHeader(name)
	if len(v) > maxIDLen {
		return ""
	}
	for i := 0; i < len(v); i++ {
		if v[i] < 0x21 || v[i] > 0x7e {
			return ""
		}
	}
	return v
}
