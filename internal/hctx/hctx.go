package hctx

import (
	"context"
	"sync/atomic"
)

// State holds per-execution metadata shared between a running task's work
// function and the runtime that observes it while the work is in flight.
type State struct {
	TaskID   string
	progress atomic.Int32
}

// New creates a fresh state container for the given task.
func New(taskID string) *State { return &State{TaskID: taskID} }

// SetProgress stores p clamped to 0..100.
func (s *State) SetProgress(p int) {
	if p < 0 {
		p = 0
	} else if p > 100 {
		p = 100
	}
	s.progress.Store(int32(p))
}

// Progress returns the last reported progress.
func (s *State) Progress() int { return int(s.progress.Load()) }

type ctxKey struct{}

// WithState returns a child context carrying the given state.
func WithState(parent context.Context, s *State) context.Context {
	return context.WithValue(parent, ctxKey{}, s)
}

// From extracts the state from context if present.
func From(ctx context.Context) (*State, bool) {
	v := ctx.Value(ctxKey{})
	if v == nil {
		return nil, false
	}
	st, ok := v.(*State)
	return st, ok
}
