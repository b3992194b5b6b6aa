package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joshuadavidthomas/zerolimit/internal/logging"
)

// Middleware records HTTP metrics and logs each request.
func Middleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)
		status := strconv.Itoa(c.Writer.Status())
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}
		m.RecordRequest(endpoint, c.Request.Method, status, duration.Seconds())

		logger := logging.FromContext(c.Request.Context())
		logger.Debug("request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", duration.Milliseconds(),
		)
		if len(c.Errors) > 0 {
			logger.Error("request error", "err", c.Errors.String())
		}
	}
}
