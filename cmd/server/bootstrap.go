package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/classroom/internal/api"
	"github.com/charlesng35/classroom/internal/app"
	"github.com/charlesng35/classroom/internal/app/maintenance"
	"github.com/charlesng35/classroom/internal/pairing"
	"github.com/charlesng35/classroom/internal/realtime"
	"github.com/charlesng35/classroom/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	Registry *pairing.Registry
	Hub      *realtime.Hub
	Sweeper  *maintenance.Sweeper
	Router   *gin.Engine
}

// bootstrapRuntime builds the pairing registry, its observers, the sweeper and the HTTP router.
func bootstrapRuntime(cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	success := false

	defer func() {
		if !success {
			if err := stack.Shutdown(context.Background()); err != nil {
				log.Warn("bootstrap cleanup failed", zap.Error(err))
			}
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	renderer, err := cfg.Pairing.QRRenderer()
	if err != nil {
		return nil, fmt.Errorf("initialise qr renderer: %w", err)
	}

	stack.Hub = realtime.NewHub()

	observers := pairing.Observers{
		pairing.MetricsObserver{},
		pairing.LogObserver{Log: logger.WithModule("pairing")},
		stack.Hub,
	}
	opts := append(cfg.Pairing.RegistryOptions(), pairing.WithObserver(observers))
	stack.Registry = pairing.NewRegistry(opts...)

	stack.Sweeper = maintenance.NewSweeper(stack.Registry,
		maintenance.WithSchedule(cfg.Pairing.SweepSchedule),
		maintenance.WithRetention(cfg.Pairing.AuthenticatedRetention),
	)
	if err := stack.Sweeper.Start(); err != nil {
		return nil, fmt.Errorf("start pairing sweeper: %w", err)
	}

	stack.Router, err = api.NewRouter(cfg, api.Dependencies{
		Registry: stack.Registry,
		Renderer: renderer,
		Hub:      stack.Hub,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	log.Info("pairing registry ready",
		zap.Duration("window", stack.Registry.Window()),
		zap.Int("shards", cfg.Pairing.Shards),
	)

	success = true
	return stack, nil
}

// Shutdown stops the sweeper and every pending expiry timer.
func (s *runtimeStack) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}

	var errs error
	if s.Sweeper != nil {
		select {
		case <-s.Sweeper.Stop().Done():
		case <-ctx.Done():
			errs = multierr.Append(errs, fmt.Errorf("stop pairing sweeper: %w", ctx.Err()))
		}
	}

	if s.Registry != nil {
		s.Registry.Close()
	}

	return errs
}
