package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/config"
	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/proxy"
)

// GetPool returns a handler for GET /api/v1/pool.
func GetPool(pool *proxy.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, pool.Stats())
	}
}

// RefreshPool returns a handler for POST /api/v1/pool/refresh.
// It forces a replenishment pass up to the configured threshold and reports
// the resulting pool size. The call blocks while candidates are probed.
func RefreshPool(pool *proxy.Pool, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		pool.EnsureMinimum(c.Request.Context(), cfg.Proxy.RefillThreshold)
		c.JSON(http.StatusOK, pool.Stats())
	}
}
