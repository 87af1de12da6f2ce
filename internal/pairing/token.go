// Package pairing implements the two-device confirmation handshake: a primary device
// obtains a short-lived token (shown as a QR code), a secondary device presents it to
// confirm possession, and the primary device polls or watches for the confirmation.
package pairing

import (
	"fmt"
	"strings"
	"time"
)

// State is the lifecycle state of a live token. Expired tokens are not represented;
// they are removed from the registry.
type State int

const (
	StateValid State = iota + 1
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateValid:
		return "valid"
	case StateAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state as its lower-case name.
func (s State) MarshalText() ([]byte, error) {
	switch s {
	case StateValid, StateAuthenticated:
		return []byte(s.String()), nil
	default:
		return nil, fmt.Errorf("pairing: unknown state %d", int(s))
	}
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "valid":
		*s = StateValid
	case "authenticated":
		*s = StateAuthenticated
	default:
		return fmt.Errorf("pairing: unknown state %q", string(text))
	}
	return nil
}

// Outcome reports the result of presenting a token.
type Outcome int

const (
	OutcomeNotFound Outcome = iota
	OutcomeConfirmed
	OutcomeAlreadyConfirmed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeAlreadyConfirmed:
		return "already_confirmed"
	default:
		return "not_found"
	}
}

// Token is a snapshot of a registry entry. Callers only ever receive copies.
type Token struct {
	ID          string    `json:"id"`
	State       State     `json:"state"`
	CreatedAt   time.Time `json:"created_at"`
	Deadline    time.Time `json:"expires_at"`
	ConfirmedAt time.Time `json:"confirmed_at,omitempty"`
}

// LiveAt reports whether the token is still observable at the supplied instant.
// Confirmed tokens stay live after their deadline.
func (t Token) LiveAt(now time.Time) bool {
	switch t.State {
	case StateAuthenticated:
		return true
	case StateValid:
		return now.Before(t.Deadline)
	default:
		return false
	}
}
