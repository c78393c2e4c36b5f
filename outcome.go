package prioexec

import (
	"errors"
	"time"

	rtm "github.com/UniQw/prioexec/internal/runtime"
)

// Outcome is the recorded result of one task: a success value or a failure.
type Outcome struct {
	Value any
	Err   error
}

// Success builds a successful outcome.
func Success(v any) Outcome { return Outcome{Value: v} }

// Failure builds a failed outcome.
func Failure(err error) Outcome { return Outcome{Err: err} }

// Succeeded reports whether the work returned without error.
func (o Outcome) Succeeded() bool { return o.Err == nil }

// Cancelled reports whether the task was discarded by Shutdown before it ran.
func (o Outcome) Cancelled() bool { return errors.Is(o.Err, ErrCancelled) }

// TimedOut reports whether the task exceeded its timeout.
func (o Outcome) TimedOut() bool { return errors.Is(o.Err, ErrTimedOut) }

// Completion is delivered to every CompletionSink once per task and kept in
// the executor's completed sequence.
type Completion struct {
	TaskID      string
	Name        string
	Priority    Priority
	Outcome     Outcome
	StartedAt   time.Time
	CompletedAt time.Time
	// Duration is the elapsed execution time; zero for tasks that never ran.
	Duration time.Duration
}

// State returns the terminal state matching the outcome.
func (c Completion) State() State {
	switch {
	case c.Outcome.Succeeded():
		return StateSucceeded
	case c.Outcome.Cancelled():
		return StateCancelled
	default:
		return StateFailed
	}
}

// Flight describes a task currently running on a slot.
type Flight struct {
	TaskID    string
	Name      string
	Priority  Priority
	StartedAt time.Time
	// Progress is the last value reported through SetProgress (0..100).
	Progress int
}

// Stats is a point-in-time snapshot of an executor.
type Stats struct {
	Concurrency int
	Pending     int
	InFlight    int
	Completed   int
	Started     bool
	Closed      bool
}

// DrainStatus is the result of WaitUntilDrained.
type DrainStatus int

const (
	// Drained means nothing was pending or in flight.
	Drained DrainStatus = iota
	// TimedOut means the wait gave up first.
	TimedOut
)

func (s DrainStatus) String() string {
	if s == Drained {
		return "drained"
	}
	return "timed_out"
}

func completionFrom(c rtm.Completion) Completion {
	return Completion{
		TaskID:      c.ID,
		Name:        c.Name,
		Priority:    Priority(c.Priority),
		Outcome:     Outcome{Value: c.Value, Err: c.Err},
		StartedAt:   c.StartedAt,
		CompletedAt: c.CompletedAt,
		Duration:    c.Duration,
	}
}
