package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/config"
	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/models"
	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/proxy"
)

// Health returns a handler for GET /api/v1/health.
//
// Reports pool utilisation and degrades status when the validated pool has
// drained below the refill threshold.
func Health(pool *proxy.Pool, cfg *config.Config, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := pool.Stats()

		status := "healthy"
		if stats.Available < cfg.Proxy.RefillThreshold {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:        status,
			UptimeSeconds: int64(time.Since(startTime).Seconds()),
			Pool:          stats,
		})
	}
}
