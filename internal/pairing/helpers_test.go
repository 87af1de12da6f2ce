package pairing

import (
	"sync"
	"time"
)

// manualTimers records scheduled expiries so tests decide when they fire.
type manualTimers struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (m *manualTimers) AfterFunc(d time.Duration, fn func()) Timer {
	t := &manualTimer{delay: d, fn: fn}
	m.mu.Lock()
	m.timers = append(m.timers, t)
	m.mu.Unlock()
	return t
}

func (m *manualTimers) all() []*manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*manualTimer, len(m.timers))
	copy(out, m.timers)
	return out
}

// fireAll runs every timer that has not been stopped.
func (m *manualTimers) fireAll() {
	for _, t := range m.all() {
		t.fire()
	}
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (t *manualTimer) fire() {
	t.mu.Lock()
	if t.stopped || t.fired {
		t.mu.Unlock()
		return
	}
	t.fired = true
	t.mu.Unlock()
	t.fn()
}

func (t *manualTimer) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// testClock is a mutable clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// recordingObserver captures changes in order.
type recordingObserver struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recordingObserver) Observe(change Change) {
	r.mu.Lock()
	r.changes = append(r.changes, change)
	r.mu.Unlock()
}

func (r *recordingObserver) kinds() []ChangeKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]ChangeKind, len(r.changes))
	for i, change := range r.changes {
		kinds[i] = change.Kind
	}
	return kinds
}
