// Package middleware holds the gin middleware of the compiler service.
package middleware

import (
	"context"
	"strings"

	"codejudge/pkg/utils/contextkey"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	TraceIDHeader   = "X-Trace-Id"
	RequestIDHeader = "X-Request-Id"

	traceIDContextKey   = "trace_id"
	requestIDContextKey = "request_id"
)

// TraceContext puts a trace id and a request id into the request context and
// echoes them in response headers. Incoming trace ids are kept; request ids are
// kept when the caller supplies one.
func TraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := headerOrNew(c, TraceIDHeader)
		requestID := headerOrNew(c, RequestIDHeader)

		ctx := context.WithValue(c.Request.Context(), contextkey.TraceID, traceID)
		ctx = context.WithValue(ctx, contextkey.RequestID, requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Set(traceIDContextKey, traceID)
		c.Set(requestIDContextKey, requestID)
		c.Writer.Header().Set(TraceIDHeader, traceID)
		c.Writer.Header().Set(RequestIDHeader, requestID)

		c.Next()
	}
}

func headerOrNew(c *gin.Context, name string) string {
	if value := strings.TrimSpace(c.GetHeader(name)); value != "" {
		return value
	}
	return uuid.NewString()
}
