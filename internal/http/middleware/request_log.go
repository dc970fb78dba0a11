package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/gitguide-backend/internal/platform/ctxutil"
	"github.com/yungbote/gitguide-backend/internal/platform/logger"
)

// quietRoutes are polled by health checks and load balancers; they log at Debug
// unless they fail.
var quietRoutes = map[string]bool{"/healthcheck": true}

// RequestLogger writes one line per request, tagged with the trace scope set
// by AttachTraceContext. Event streams are long-lived, so their line reports
// how long the subscriber stayed connected.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if log == nil {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		fields := []interface{}{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"bytes", c.Writer.Size(),
		}
		if strings.HasSuffix(route, "/events") {
			fields = append(fields, "stream_seconds", int(time.Since(start).Seconds()))
		} else {
			fields = append(fields, "duration_ms", time.Since(start).Milliseconds())
		}
		fields = append(fields, ctxutil.TraceFrom(c.Request.Context()).LogFields()...)
		if len(c.Errors) > 0 {
			fields = append(fields, "error", c.Errors.Last().Error())
		}

		switch {
		case status >= 500:
			log.Error("request failed", fields...)
		case status >= 400:
			log.Warn("request rejected", fields...)
		case quietRoutes[route]:
			log.Debug("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}
