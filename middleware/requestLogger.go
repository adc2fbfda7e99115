package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"canteen/logger"
)

// RequestLoggerMiddleware writes one log line per request.
func RequestLoggerMiddleware(log *logger.Logger) gin.HandlerFunc {
	log = log.WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		args := []any{
			"request_id", RequestID(c),
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			args = append(args, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			log.Error("Request failed", args...)
		case status >= 400:
			log.Warn("Request rejected", args...)
		default:
			log.Info("Request handled", args...)
		}
	}
}
