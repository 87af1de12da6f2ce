package pairing

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

const (
	defaultShardCount = 32
	maxIssueAttempts  = 3
)

var (
	// ErrRegistryClosed is returned by Issue after Close.
	ErrRegistryClosed = errors.New("pairing: registry closed")
	// ErrIDCollision is returned when the generator keeps producing ids already in use.
	ErrIDCollision = errors.New("pairing: id collision")
)

// Option customises the Registry.
type Option func(*Registry)

// WithWindow overrides how long an unconfirmed token stays valid.
func WithWindow(window time.Duration) Option {
	return func(r *Registry) {
		if window > 0 {
			r.window = window
		}
	}
}

// WithShards overrides the number of lock stripes.
func WithShards(count int) Option {
	return func(r *Registry) {
		if count > 0 {
			r.shardCount = count
		}
	}
}

// WithClock injects a custom clock used for deadlines and confirmation times.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDGenerator replaces the UUIDv4 generator, primarily for testing.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(r *Registry) {
		if gen != nil {
			r.newID = gen
		}
	}
}

// WithAfterFunc replaces time.AfterFunc for the expiry scheduler.
func WithAfterFunc(fn AfterFunc) Option {
	return func(r *Registry) {
		if fn != nil {
			r.afterFunc = fn
		}
	}
}

// WithObserver registers an observer for registry changes.
func WithObserver(observer Observer) Option {
	return func(r *Registry) {
		if observer != nil {
			r.observers = append(r.observers, observer)
		}
	}
}

// Registry owns every live token together with its expiry timer. Entries are spread
// over independently locked shards so unrelated tokens never contend.
type Registry struct {
	shards    []*shard
	scheduler *Scheduler
	observers Observers
	now       func() time.Time
	newID     func() (string, error)
	closed    atomic.Bool

	window     time.Duration
	shardCount int
	afterFunc  AfterFunc
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	token  Token
	cancel CancelFunc
}

// Stats counts live entries by state.
type Stats struct {
	Valid         int `json:"valid"`
	Authenticated int `json:"authenticated"`
}

// SweepResult counts entries removed by Sweep.
type SweepResult struct {
	Expired       int
	Authenticated int
}

// NewRegistry constructs an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		now:        time.Now,
		newID:      newUUID,
		window:     DefaultWindow,
		shardCount: defaultShardCount,
	}

	for _, opt := range opts {
		opt(r)
	}

	r.scheduler = NewScheduler(r.window, r.afterFunc)
	r.shards = make([]*shard, r.shardCount)
	for i := range r.shards {
		r.shards[i] = &shard{entries: make(map[string]*entry)}
	}

	return r
}

// Window returns the validity window applied to new tokens.
func (r *Registry) Window() time.Duration {
	return r.scheduler.Window()
}

// Issue creates a new Valid token and arms its expiry timer.
func (r *Registry) Issue() (Token, error) {
	if r.closed.Load() {
		return Token{}, ErrRegistryClosed
	}

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		id, err := r.newID()
		if err != nil {
			return Token{}, fmt.Errorf("pairing: generate id: %w", err)
		}

		s := r.shardFor(id)
		s.mu.Lock()
		if _, exists := s.entries[id]; exists {
			s.mu.Unlock()
			continue
		}

		now := r.now()
		e := &entry{token: Token{
			ID:        id,
			State:     StateValid,
			CreatedAt: now,
			Deadline:  now.Add(r.scheduler.Window()),
		}}
		e.cancel = r.scheduler.Schedule(func() { r.Evict(id) })
		s.entries[id] = e
		token := e.token
		s.mu.Unlock()

		r.observers.Observe(Change{Kind: ChangeIssued, Token: token})
		return token, nil
	}

	return Token{}, ErrIDCollision
}

// Authenticate presents a token. The first call on a Valid token confirms it; later
// calls observe AlreadyConfirmed. Unknown ids and ids past their deadline yield NotFound.
func (r *Registry) Authenticate(id string) Outcome {
	s := r.shardFor(id)
	s.mu.Lock()

	var changes []Change
	e, present := s.entries[id]
	if present && e.token.State == StateValid && !r.now().Before(e.token.Deadline) {
		// The timer has not fired yet but the deadline has passed.
		step, _ := Transition(true, StateValid, EventDeadline)
		r.applyLocked(s, e, step)
		changes = append(changes, Change{Kind: ChangeExpired, Token: e.token})
		present = false
	}

	var state State
	if present {
		state = e.token.State
	}

	step, ok := Transition(present, state, EventAuthenticate)
	if !ok {
		step = Step{Outcome: OutcomeNotFound}
	}

	switch step.Outcome {
	case OutcomeConfirmed:
		e.token.ConfirmedAt = r.now()
		r.applyLocked(s, e, step)
		changes = append(changes, Change{Kind: ChangeConfirmed, Token: e.token})
	case OutcomeAlreadyConfirmed:
		changes = append(changes, Change{Kind: ChangeAlreadyConfirmed, Token: e.token})
	default:
		changes = append(changes, Change{Kind: ChangeNotFound, Token: Token{ID: id}})
	}
	s.mu.Unlock()

	for _, change := range changes {
		r.observers.Observe(change)
	}
	return step.Outcome
}

// Inspect returns a copy of the live token. A Valid token past its deadline is
// reported as absent. Inspect never mutates the registry.
func (r *Registry) Inspect(id string) (Token, bool) {
	s := r.shardFor(id)
	s.mu.Lock()
	e, ok := s.entries[id]
	var token Token
	if ok {
		token = e.token
	}
	s.mu.Unlock()

	if !ok || !token.LiveAt(r.now()) {
		return Token{}, false
	}
	return token, true
}

// Evict removes the token if it is still Valid and reports whether it did. Confirmed
// and absent tokens are left untouched.
func (r *Registry) Evict(id string) bool {
	s := r.shardFor(id)
	s.mu.Lock()

	e, present := s.entries[id]
	var state State
	if present {
		state = e.token.State
	}

	step, ok := Transition(present, state, EventDeadline)
	if !ok {
		s.mu.Unlock()
		return false
	}
	r.applyLocked(s, e, step)
	token := e.token
	s.mu.Unlock()

	r.observers.Observe(Change{Kind: ChangeExpired, Token: token})
	return true
}

// Sweep removes Valid entries whose deadline has passed without their timer firing and,
// when retention is positive, Authenticated entries confirmed at least retention ago.
func (r *Registry) Sweep(now time.Time, retention time.Duration) SweepResult {
	var result SweepResult

	for _, s := range r.shards {
		var changes []Change

		s.mu.Lock()
		for _, e := range s.entries {
			switch e.token.State {
			case StateValid:
				if now.Before(e.token.Deadline) {
					continue
				}
				step, _ := Transition(true, StateValid, EventDeadline)
				r.applyLocked(s, e, step)
				changes = append(changes, Change{Kind: ChangeExpired, Token: e.token})
				result.Expired++
			case StateAuthenticated:
				if retention <= 0 || now.Sub(e.token.ConfirmedAt) < retention {
					continue
				}
				delete(s.entries, e.token.ID)
				changes = append(changes, Change{Kind: ChangeSwept, Token: e.token})
				result.Authenticated++
			}
		}
		s.mu.Unlock()

		for _, change := range changes {
			r.observers.Observe(change)
		}
	}

	return result
}

// Stats counts the live entries. Shards are visited one at a time so the totals are
// not a single atomic snapshot.
func (r *Registry) Stats() Stats {
	var stats Stats
	for _, s := range r.shards {
		s.mu.Lock()
		for _, e := range s.entries {
			switch e.token.State {
			case StateValid:
				stats.Valid++
			case StateAuthenticated:
				stats.Authenticated++
			}
		}
		s.mu.Unlock()
	}
	return stats
}

// Close stops every pending expiry timer and rejects further issuance. Entries stay
// readable.
func (r *Registry) Close() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}
	for _, s := range r.shards {
		s.mu.Lock()
		for _, e := range s.entries {
			if e.cancel != nil {
				e.cancel()
			}
		}
		s.mu.Unlock()
	}
}

// applyLocked performs a transition step. The shard lock must be held.
func (r *Registry) applyLocked(s *shard, e *entry, step Step) {
	if step.CancelTimer && e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	if step.Remove {
		delete(s.entries, e.token.ID)
		return
	}
	e.token.State = step.Next
}

func (r *Registry) shardFor(id string) *shard {
	return r.shards[xxhash.Sum64String(id)%uint64(len(r.shards))]
}

func newUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
