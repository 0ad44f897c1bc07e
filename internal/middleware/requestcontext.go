package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/storyforge-backend/internal/logger"
)

const RequestIDHeader = "X-Request-ID"

// AttachRequestContext tags every request with an ID (honoring one supplied
// by the client) and logs a single completion line per request.
func AttachRequestContext(log *logger.Logger) gin.HandlerFunc {
	rlog := log.With("component", "http")
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		start := time.Now()
		c.Next()

		rlog.Info("request completed",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"took", time.Since(start),
		)
	}
}
