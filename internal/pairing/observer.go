package pairing

import (
	"go.uber.org/zap"

	"github.com/charlesng35/classroom/pkg/metrics"
)

// ChangeKind classifies a registry change.
type ChangeKind string

const (
	ChangeIssued           ChangeKind = "issued"
	ChangeConfirmed        ChangeKind = "confirmed"
	ChangeAlreadyConfirmed ChangeKind = "already_confirmed"
	ChangeNotFound         ChangeKind = "not_found"
	ChangeExpired          ChangeKind = "expired"
	ChangeSwept            ChangeKind = "swept"
)

// Change describes something that happened to a token. Token holds the state the entry
// had before it was removed for expired and swept changes, and only the ID for not_found.
type Change struct {
	Kind  ChangeKind
	Token Token
}

// Observer receives registry changes after the owning critical section has been released.
// Implementations must not block.
type Observer interface {
	Observe(Change)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Change)

// Observe calls f(change).
func (f ObserverFunc) Observe(change Change) {
	f(change)
}

// Observers fans a change out to every member in order.
type Observers []Observer

// Observe notifies each observer.
func (o Observers) Observe(change Change) {
	for _, observer := range o {
		if observer != nil {
			observer.Observe(change)
		}
	}
}

// MetricsObserver mirrors registry changes into Prometheus counters and gauges.
type MetricsObserver struct{}

// Observe records the change.
func (MetricsObserver) Observe(change Change) {
	metrics.PairingEvents.WithLabelValues(string(change.Kind)).Inc()

	valid := metrics.PairingLiveTokens.WithLabelValues(StateValid.String())
	authenticated := metrics.PairingLiveTokens.WithLabelValues(StateAuthenticated.String())

	switch change.Kind {
	case ChangeIssued:
		valid.Inc()
	case ChangeConfirmed:
		valid.Dec()
		authenticated.Inc()
	case ChangeExpired:
		valid.Dec()
	case ChangeSwept:
		if change.Token.State == StateAuthenticated {
			authenticated.Dec()
		} else {
			valid.Dec()
		}
	}
}

// LogObserver writes every change at debug level.
type LogObserver struct {
	Log *zap.Logger
}

// Observe logs the change.
func (o LogObserver) Observe(change Change) {
	if o.Log == nil {
		return
	}
	o.Log.Debug("pairing token "+string(change.Kind),
		zap.String("token_id", change.Token.ID),
		zap.Stringer("state", change.Token.State),
	)
}
