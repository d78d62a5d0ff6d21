package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/coursegen-backend/internal/platform/ctxutil"
)

const (
	HeaderTraceID   = "X-Trace-Id"
	HeaderRequestID = "X-Request-Id"

	maxClientIDLen = 64
)

// AttachTraceContext tags every request with a trace id and a request id and
// echoes both back. An active span wins over a client supplied trace id.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := clientID(c.GetHeader(HeaderRequestID))
		if reqID == "" {
			reqID = uuid.NewString()
		}

		var traceID string
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		} else if traceID = clientID(c.GetHeader(HeaderTraceID)); traceID == "" {
			traceID = strings.ReplaceAll(uuid.NewString(), "-", "")
		}

		td := &ctxutil.TraceData{TraceID: traceID, RequestID: reqID}
		c.Request = c.Request.WithContext(ctxutil.WithTraceData(c.Request.Context(), td))
		c.Header(HeaderTraceID, traceID)
		c.Header(HeaderRequestID, reqID)
		c.Next()
	}
}

// clientID accepts a caller supplied id only when it is short and made of
// characters safe to log.
func clientID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > maxClientIDLen {
		return ""
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return ""
		}
	}
	return id
}
