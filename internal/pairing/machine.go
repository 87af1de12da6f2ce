package pairing

// Event drives a token through the handshake.
type Event int

const (
	EventAuthenticate Event = iota + 1
	EventDeadline
)

func (e Event) String() string {
	switch e {
	case EventAuthenticate:
		return "authenticate"
	case EventDeadline:
		return "deadline"
	default:
		return "unknown"
	}
}

// Step is the effect of one row of the handshake table.
type Step struct {
	Next        State
	Remove      bool
	CancelTimer bool
	Outcome     Outcome
}

// Transition looks up the handshake row for a token. present is false when the id has
// no live entry. ok is false when no row matches, in which case the event is a no-op.
//
//	Valid         + authenticate -> Authenticated, cancel timer, Confirmed
//	Valid         + deadline     -> removed
//	Authenticated + authenticate -> Authenticated, AlreadyConfirmed
//	absent        + authenticate -> NotFound
func Transition(present bool, state State, event Event) (step Step, ok bool) {
	if !present {
		if event == EventAuthenticate {
			return Step{Outcome: OutcomeNotFound}, true
		}
		return Step{}, false
	}

	switch state {
	case StateValid:
		switch event {
		case EventAuthenticate:
			return Step{Next: StateAuthenticated, CancelTimer: true, Outcome: OutcomeConfirmed}, true
		case EventDeadline:
			return Step{Remove: true, CancelTimer: true, Outcome: OutcomeNotFound}, true
		}
	case StateAuthenticated:
		if event == EventAuthenticate {
			return Step{Next: StateAuthenticated, Outcome: OutcomeAlreadyConfirmed}, true
		}
	}

	return Step{}, false
}
