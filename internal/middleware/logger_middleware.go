package middleware

import (
	"time"

	"github.com/Dhoini/Entitlement-service/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RequestLogger - Gin middleware для логирования запросов.
// Ответы 5xx пишутся на уровне error, 4xx на warn.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		path := c.Request.URL.Path
		if rawQuery := c.Request.URL.RawQuery; rawQuery != "" {
			path = path + "?" + rawQuery
		}

		c.Next()

		status := c.Writer.Status()
		fields := []any{
			"status_code", status,
			"method", c.Request.Method,
			"path", path,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		}
		if userID := UserID(c); userID != "" {
			fields = append(fields, "userID", userID)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			log.Errorw("Request handled", fields...)
		case status >= 400:
			log.Warnw("Request handled", fields...)
		default:
			log.Infow("Request handled", fields...)
		}
	}
}
