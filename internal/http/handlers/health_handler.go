package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthPingTimeout = 2 * time.Second

// Pinger зависимость, проверяемая health-эндпоинтом
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck обработчик для проверки работоспособности сервиса
func HealthCheck(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
		defer cancel()

		status, code := "OK", http.StatusOK
		database := "up"
		if err := db.Ping(ctx); err != nil {
			status, code, database = "DEGRADED", http.StatusServiceUnavailable, "down"
		}

		c.JSON(code, gin.H{
			"status":   status,
			"database": database,
			"time":     time.Now().Format(time.RFC3339),
		})
	}
}
