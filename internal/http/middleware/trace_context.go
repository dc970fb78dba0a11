package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/gitguide-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// AttachTraceContext tags the request with trace and request ids and, on
// project routes, the project and day it addresses. Malformed path values
// are left out; the handlers reject them.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		tr := &ctxutil.Trace{
			RequestID: strings.TrimSpace(c.GetHeader(headerRequestID)),
			TraceID:   strings.TrimSpace(c.GetHeader(headerTraceID)),
		}
		if tr.RequestID == "" {
			tr.RequestID = uuid.New().String()
		}
		if tr.TraceID == "" {
			if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
				tr.TraceID = sc.TraceID().String()
			} else {
				tr.TraceID = uuid.New().String()
			}
		}
		if id, err := uuid.Parse(c.Param("id")); err == nil {
			tr.ProjectID = id.String()
		}
		if n, err := strconv.Atoi(c.Param("day")); err == nil {
			tr.DayNumber = &n
		}

		c.Request = c.Request.WithContext(ctxutil.WithTrace(c.Request.Context(), tr))
		c.Writer.Header().Set(headerTraceID, tr.TraceID)
		c.Writer.Header().Set(headerRequestID, tr.RequestID)
		c.Next()
	}
}
