package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/classroom/internal/app"
	"github.com/charlesng35/classroom/internal/handlers"
)

func registerHealthRoutes(r *gin.Engine, cfg *app.Config, stats handlers.StatsProvider) {
	if !cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.HealthDisabled)
		r.GET("/api/health", handlers.HealthDisabled)
		return
	}

	health := handlers.Health(stats)
	r.GET("/health", health)
	r.GET("/api/health", health)
}
