// Package api exposes the booking engine over HTTP.
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/api/handler"
	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/api/middleware"
	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/config"
	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/events"
	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/matcher"
	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/proxy"
	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/session"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(pool *proxy.Pool, runner session.Runner, m *matcher.Matcher, sink *events.Sink, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(pool, cfg, startTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Bookings
	protected.POST("/bookings", handler.PostBooking(pool, runner, m, sink, cfg))
	protected.GET("/bookings/:id", handler.GetBooking())

	// Proxy pool
	protected.GET("/pool", handler.GetPool(pool))
	protected.POST("/pool/refresh", handler.RefreshPool(pool, cfg))

	// Progress events
	protected.GET("/events", handler.GetEvents(sink))

	return r
}
