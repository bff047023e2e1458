package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/abdurrazzak7395-rgb/wafid-automation-tool/events"
)

// GetEvents returns a handler for GET /api/v1/events.
// The optional limit query parameter caps how many recent events are
// returned (default 100).
func GetEvents(sink *events.Sink) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 100
		if raw := c.Query("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}
		c.JSON(http.StatusOK, gin.H{"events": sink.Recent(limit)})
	}
}
