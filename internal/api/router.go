package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charlesng35/classroom/internal/app"
	"github.com/charlesng35/classroom/internal/handlers"
	"github.com/charlesng35/classroom/internal/middleware"
	"github.com/charlesng35/classroom/internal/pairing"
	"github.com/charlesng35/classroom/internal/realtime"
)

// Dependencies carries the long-lived services the router exposes.
type Dependencies struct {
	Registry *pairing.Registry
	Renderer *pairing.QRRenderer
	Hub      *realtime.Hub
}

// NewRouter builds the Gin engine, wires middleware and registers the pairing routes.
func NewRouter(cfg *app.Config, deps Dependencies) (*gin.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("pairing registry must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowedOrigins...))

	registerHealthRoutes(r, cfg, deps.Registry)
	registerPairingRoutes(r.Group("/api"), newPairingHandler(deps))

	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

func newPairingHandler(deps Dependencies) *handlers.PairingHandler {
	var renderer handlers.CodeRenderer
	if deps.Renderer != nil {
		renderer = deps.Renderer
	}
	var watchers handlers.WatchServer
	if deps.Hub != nil {
		watchers = deps.Hub
	}
	return handlers.NewPairingHandler(deps.Registry, renderer, watchers)
}
