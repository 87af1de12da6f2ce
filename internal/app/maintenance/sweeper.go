package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/charlesng35/classroom/internal/pairing"
	"github.com/charlesng35/classroom/pkg/logger"
)

const defaultSchedule = "@every 1m"

// TokenSweeper is the registry surface the sweeper depends on.
type TokenSweeper interface {
	Sweep(now time.Time, retention time.Duration) pairing.SweepResult
}

// Sweeper periodically removes pairing tokens whose expiry timer was lost and, when a
// retention is configured, confirmed tokens older than that retention.
type Sweeper struct {
	tokens    TokenSweeper
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	retention time.Duration
	schedule  string
}

// Option customises the Sweeper.
type Option func(*Sweeper)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Sweeper) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithNow overrides the clock used for sweep comparisons.
func WithNow(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRetention keeps confirmed tokens for the given duration. Zero keeps them forever.
func WithRetention(retention time.Duration) Option {
	return func(s *Sweeper) {
		if retention >= 0 {
			s.retention = retention
		}
	}
}

// WithSchedule overrides the cron expression for the sweep.
func WithSchedule(expr string) Option {
	return func(s *Sweeper) {
		if expr != "" {
			s.schedule = expr
		}
	}
}

// NewSweeper constructs a Sweeper. A nil registry disables the job.
func NewSweeper(tokens TokenSweeper, opts ...Option) *Sweeper {
	sweeper := &Sweeper{
		tokens:   tokens,
		now:      time.Now,
		schedule: defaultSchedule,
		log:      logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(sweeper)
	}

	if sweeper.cron == nil {
		sweeper.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return sweeper
}

// Start registers the sweep with the cron scheduler and launches it.
func (s *Sweeper) Start() error {
	if s.tokens == nil {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			s.log.Warn("pairing sweep failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for a running sweep to complete.
func (s *Sweeper) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// RunOnce performs a single sweep.
func (s *Sweeper) RunOnce(ctx context.Context) (pairing.SweepResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.tokens == nil {
		return pairing.SweepResult{}, nil
	}
	if err := ctx.Err(); err != nil {
		return pairing.SweepResult{}, err
	}

	result := s.tokens.Sweep(s.now(), s.retention)
	if removed := result.Expired + result.Authenticated; removed > 0 {
		s.log.Info("pairing sweep removed tokens",
			zap.Int("expired", result.Expired),
			zap.Int("authenticated", result.Authenticated),
		)
	}
	return result, nil
}
