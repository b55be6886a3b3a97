package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/substationlabs/assetview-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// AttachTraceContext stamps every request with a trace id and a request id,
// propagating the caller's headers when present and falling back to the
// active OTEL span's trace id. Both ids are echoed back on the response so
// viewer-side reports can be correlated with server logs.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if reqID == "" {
			reqID = uuid.New().String()
		}
		traceID := resolveTraceID(c)

		ctx := ctxutil.WithTraceData(c.Request.Context(), &ctxutil.TraceData{
			TraceID:   traceID,
			RequestID: reqID,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Set("trace_id", traceID)
		c.Set("request_id", reqID)
		c.Writer.Header().Set(headerTraceID, traceID)
		c.Writer.Header().Set(headerRequestID, reqID)
		c.Next()
	}
}

func resolveTraceID(c *gin.Context) string {
	if traceID := strings.TrimSpace(c.GetHeader(headerTraceID)); traceID != "" {
		return traceID
	}
	if spanCtx := trace.SpanContextFromContext(c.Request.Context()); spanCtx.HasTraceID() {
		return spanCtx.TraceID().String()
	}
	return uuid.New().String()
}
