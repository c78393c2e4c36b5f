package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"
)

// ErrTimedOut is the outcome of work that outlived its timeout.
var ErrTimedOut = errors.New("prioexec: task timed out")

// Work is the unit executed on a slot.
type Work func(ctx context.Context) (any, error)

// TaskError wraps an error produced by the task's own work.
type TaskError struct {
	Err error
}

func (e *TaskError) Error() string { return "prioexec: task failed: " + e.Err.Error() }

// Unwrap exposes the work's error to errors.Is / errors.As.
func (e *TaskError) Unwrap() error { return e.Err }

// PanicError is the error a panicking work function is converted into.
type PanicError struct {
	Value any
	Stack []byte
}

func (e PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// Unwrap returns the value passed to panic if it was an error, nil otherwise.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

type result struct {
	value any
	err   error
}

// Run executes work on the calling goroutine when timeout <= 0. With a positive
// timeout the work runs on its own goroutine and Run returns ErrTimedOut once
// the timeout elapses; the abandoned goroutine's late result is discarded.
// Errors returned or panics raised by work are wrapped in *TaskError.
func Run(ctx context.Context, work Work, timeout time.Duration) (any, error) {
	if timeout <= 0 {
		return invoke(ctx, work)
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// buffered so a late finisher never blocks forever
	done := make(chan result, 1)
	go func() {
		v, err := invoke(tctx, work)
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(tctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimedOut
		}
		return r.value, r.err
	case <-tctx.Done():
		if errors.Is(tctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimedOut
		}
		// parent cancelled: still wait for the work, cancellation is cooperative
		r := <-done
		return r.value, r.err
	}
}

func invoke(ctx context.Context, work Work) (v any, err error) {
	defer func() {
		if p := recover(); p != nil {
			v = nil
			err = &TaskError{Err: PanicError{Value: p, Stack: debug.Stack()}}
		}
	}()
	v, err = work(ctx)
	if err != nil {
		return nil, &TaskError{Err: err}
	}
	return v, nil
}
