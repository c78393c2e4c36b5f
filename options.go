package prioexec

import "time"

type options struct {
	id          string
	name        string
	description string
	timeout     time.Duration
	deadline    time.Time
}

// Option configures a task during Submit.
type Option func(*options)

// TaskID sets a custom ID for the task. If not provided, a random UUID will be generated.
func TaskID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

// Name sets a human-readable label for the task.
func Name(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// Description attaches free-form text to the task.
func Description(desc string) Option {
	return func(o *options) {
		o.description = desc
	}
}

// Timeout overrides the executor's task timeout for this task. Values <= 0 are ignored.
func Timeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// ExpireIn sets a relative deadline. A task still pending when the deadline
// passes is not run and fails with ErrExpired.
func ExpireIn(d time.Duration) Option {
	return func(o *options) {
		o.deadline = time.Now().Add(d)
	}
}

// Deadline sets an absolute deadline. A task still pending when the deadline
// passes is not run and fails with ErrExpired.
func Deadline(t time.Time) Option {
	return func(o *options) {
		if !t.IsZero() {
			o.deadline = t
		}
	}
}
