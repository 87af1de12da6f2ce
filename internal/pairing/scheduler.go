package pairing

import (
	"sync"
	"time"
)

// DefaultWindow is how long an unconfirmed token stays valid.
const DefaultWindow = 5 * time.Minute

// CancelFunc disarms a scheduled expiry. It reports whether the timer was stopped
// before firing and is safe to call more than once.
type CancelFunc func() bool

// Timer is the subset of *time.Timer the scheduler relies on.
type Timer interface {
	Stop() bool
}

// AfterFunc arms fn to run once after d.
type AfterFunc func(d time.Duration, fn func()) Timer

// Scheduler arms one expiry countdown per token.
type Scheduler struct {
	window    time.Duration
	afterFunc AfterFunc
}

// NewScheduler constructs a scheduler with the supplied window. Non-positive windows
// fall back to DefaultWindow.
func NewScheduler(window time.Duration, afterFunc AfterFunc) *Scheduler {
	if window <= 0 {
		window = DefaultWindow
	}
	if afterFunc == nil {
		afterFunc = func(d time.Duration, fn func()) Timer {
			return time.AfterFunc(d, fn)
		}
	}
	return &Scheduler{window: window, afterFunc: afterFunc}
}

// Window returns the validity window applied to new tokens.
func (s *Scheduler) Window() time.Duration {
	return s.window
}

// Schedule arms fire to run once the window elapses and returns its cancellation handle.
func (s *Scheduler) Schedule(fire func()) CancelFunc {
	timer := s.afterFunc(s.window, fire)

	var (
		once    sync.Once
		stopped bool
	)
	return func() bool {
		once.Do(func() {
			stopped = timer.Stop()
		})
		return stopped
	}
}
