package prioexec

import (
	"errors"

	rtm "github.com/UniQw/prioexec/internal/runtime"
	"github.com/UniQw/prioexec/internal/worker"
)

// ErrInvalidConfiguration is returned by New when the Config cannot be used.
var ErrInvalidConfiguration = errors.New("prioexec: invalid configuration")

// ErrExecutorClosed is returned by Submit after Shutdown.
var ErrExecutorClosed = rtm.ErrClosed

// ErrDuplicateTask is returned by Submit when the task ID was already submitted to this executor.
var ErrDuplicateTask = rtm.ErrDuplicate

// ErrNilWork is returned by Submit when no work function is provided.
var ErrNilWork = errors.New("prioexec: nil work")

// ErrCancelled is the failure recorded for pending tasks discarded by Shutdown.
var ErrCancelled = rtm.ErrCancelled

// ErrTimedOut is the failure recorded for tasks that exceeded their timeout.
var ErrTimedOut = worker.ErrTimedOut

// ErrExpired is the failure recorded for tasks whose deadline passed before they started.
var ErrExpired = rtm.ErrExpired

// ErrUnknownPriority is returned for priorities outside Low..High.
var ErrUnknownPriority = errors.New("prioexec: unknown priority")

// ErrUnknownState is returned when an invalid state is used.
var ErrUnknownState = errors.New("prioexec: unknown state")

// TaskError wraps the error returned (or the panic raised) by a task's own work.
// Use errors.Is / errors.As to reach the original error.
type TaskError = worker.TaskError

// PanicError is wrapped in a TaskError when a task's work panics.
type PanicError = worker.PanicError
