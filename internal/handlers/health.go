package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/classroom/internal/pairing"
	"github.com/charlesng35/classroom/pkg/response"
)

// StatsProvider reports registry occupancy.
type StatsProvider interface {
	Stats() pairing.Stats
}

// Health returns a simple status payload useful for readiness checks.
func Health(stats StatsProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload := gin.H{"status": "ok"}
		if stats != nil {
			payload["tokens"] = stats.Stats()
		}
		response.Success(c, http.StatusOK, payload)
	}
}

// HealthDisabled answers health probes when the check is turned off.
func HealthDisabled(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"status":  "disabled",
	})
}
