package booking

import "fmt"

// State is a step of the booking state machine.
type State int

const (
	StateReceived State = iota
	StateValidated
	StateAllocated
	StateCommitted
	StateConfirmed

	// terminal failures
	StateRejected
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateValidated:
		return "validated"
	case StateAllocated:
		return "allocated"
	case StateCommitted:
		return "committed"
	case StateConfirmed:
		return "confirmed"
	case StateRejected:
		return "rejected"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// MarshalText lets states appear by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for st := StateReceived; st <= StateErrored; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown booking state %q", text)
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateRejected || s == StateErrored
}
