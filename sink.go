package prioexec

// CompletionSink receives one notification per completed or cancelled task.
// Notify runs synchronously on the slot that ran the task, before the slot
// picks up more work, so it must not block indefinitely. Sinks that need
// asynchronous delivery should hand off internally.
type CompletionSink interface {
	Notify(c Completion)
}

// SinkFunc adapts an ordinary function to CompletionSink.
type SinkFunc func(c Completion)

// Notify calls f(c).
func (f SinkFunc) Notify(c Completion) { f(c) }

// ChanSink forwards completions to a channel. Sends never block: when the
// channel is full the completion is dropped and Dropped, if set, is called with it.
type ChanSink struct {
	C       chan<- Completion
	Dropped func(c Completion)
}

// Notify forwards c to the channel without blocking.
func (s ChanSink) Notify(c Completion) {
	select {
	case s.C <- c:
	default:
		if s.Dropped != nil {
			s.Dropped(c)
		}
	}
}
