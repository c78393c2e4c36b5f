package prioexec

import rtm "github.com/UniQw/prioexec/internal/runtime"

// State is the lifecycle position of a submitted task. Every task is in
// exactly one state at a time.
type State string

const (
	// StatePending holds tasks waiting for a free slot.
	StatePending State = "pending"
	// StateActive holds tasks currently running on a slot.
	StateActive State = "active"
	// StateSucceeded holds tasks whose work returned without error.
	StateSucceeded State = "succeeded"
	// StateFailed holds tasks that failed, timed out or expired.
	StateFailed State = "failed"
	// StateCancelled holds pending tasks discarded by Shutdown.
	StateCancelled State = "cancelled"
)

// AllStates lists every valid state in a stable order.
var AllStates = []State{StatePending, StateActive, StateSucceeded, StateFailed, StateCancelled}

// String returns the raw string value of the state.
func (s State) String() string { return string(s) }

// Terminal reports whether no further transition can happen from s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCancelled
}

// ParseState converts a string into a State, returning an error for unknown values.
func ParseState(s string) (State, error) {
	switch s {
	case string(StatePending):
		return StatePending, nil
	case string(StateActive):
		return StateActive, nil
	case string(StateSucceeded):
		return StateSucceeded, nil
	case string(StateFailed):
		return StateFailed, nil
	case string(StateCancelled):
		return StateCancelled, nil
	default:
		return "", ErrUnknownState
	}
}

func stateFromStatus(s rtm.Status) State {
	switch s {
	case rtm.StatusPending:
		return StatePending
	case rtm.StatusActive:
		return StateActive
	case rtm.StatusSucceeded:
		return StateSucceeded
	case rtm.StatusCancelled:
		return StateCancelled
	default:
		return StateFailed
	}
}
