package prioexec

import (
	"context"
	"time"
)

// WorkFunc is the unit of work carried by a Task. The context is cancelled
// when the task times out; it also carries the helpers in workctx.go.
type WorkFunc func(ctx context.Context) (any, error)

// Task is an immutable unit of work. The executor keeps its own copy, so
// changes made by the caller after Submit have no effect.
type Task struct {
	// ID is the unique identifier, assigned at submission unless set with TaskID.
	ID string
	// Priority decides dispatch order; equal priorities run in submission order.
	Priority Priority
	// Work is invoked exactly once, without retry.
	Work WorkFunc
	// Name is a short human-readable label used in logs and records.
	Name string
	// Description is free-form text for the caller's benefit.
	Description string
	// Deadline, if set, is the latest time the task may start.
	Deadline time.Time
	// Timeout, if positive, overrides Config.TaskTimeout for this task.
	Timeout time.Duration
	// SubmittedAt is the time Submit accepted the task.
	SubmittedAt time.Time
}
