package prioexec

import (
	"context"
	"fmt"
	"sync"
	"time"

	rtm "github.com/UniQw/prioexec/internal/runtime"
	"github.com/UniQw/prioexec/internal/worker"
	"github.com/google/uuid"
)

// Config defines the configuration for an Executor.
type Config struct {
	// Concurrency is the number of execution slots. It must be positive.
	Concurrency int
	// TaskTimeout bounds each task's work. Zero means no timeout.
	TaskTimeout time.Duration
	// Logger is the logger used for executor events.
	Logger Logger
	// Sinks are notified once per completed or cancelled task.
	Sinks []CompletionSink
}

// Executor runs submitted tasks on a bounded pool of slots. A free slot always
// takes the highest-priority pending task, oldest first among equals.
//
// Task IDs stay reserved for the executor's lifetime, so the metadata of every
// submitted task is kept and memory grows with each task. Work closures are
// released once their task completes.
type Executor struct {
	rt  *rtm.Runtime
	log Logger

	mu    sync.RWMutex
	sinks []CompletionSink
	mws   []Middleware
	tasks map[string]Task
}

// New creates an Executor. It returns ErrInvalidConfiguration when
// Concurrency is not positive or TaskTimeout is negative.
func New(cfg Config) (*Executor, error) {
	if cfg.Concurrency <= 0 {
		return nil, fmt.Errorf("%w: concurrency must be positive, got %d", ErrInvalidConfiguration, cfg.Concurrency)
	}
	if cfg.TaskTimeout < 0 {
		return nil, fmt.Errorf("%w: negative task timeout %s", ErrInvalidConfiguration, cfg.TaskTimeout)
	}
	l := cfg.Logger
	if l == nil {
		l = NewFmtLogger()
	}
	e := &Executor{log: l, tasks: make(map[string]Task)}
	for _, s := range cfg.Sinks {
		if s != nil {
			e.sinks = append(e.sinks, s)
		}
	}
	e.rt = rtm.New(rtm.Config{
		Concurrency: cfg.Concurrency,
		TaskTimeout: cfg.TaskTimeout,
		Logger:      l,
		Wrap:        e.wrap,
	}, e.dispatch)
	return e, nil
}

// AddSink registers another completion listener. Sinks added while tasks are
// running only see completions that happen afterwards.
func (e *Executor) AddSink(s CompletionSink) {
	if s == nil {
		return
	}
	e.mu.Lock()
	e.sinks = append(e.sinks, s)
	e.mu.Unlock()
}

// Use adds middleware around every task's work. Middlewares are executed in
// the order they are added and apply to tasks started after the call.
func (e *Executor) Use(mw Middleware) {
	e.mu.Lock()
	e.mws = append(e.mws, mw)
	e.mu.Unlock()
}

// Submit creates a task from work and queues it. It returns the task ID.
func (e *Executor) Submit(p Priority, work WorkFunc, opts ...Option) (string, error) {
	cfg := &options{}
	for _, opt := range opts {
		opt(cfg)
	}
	return e.SubmitTask(Task{
		ID:          cfg.id,
		Priority:    p,
		Work:        work,
		Name:        cfg.name,
		Description: cfg.description,
		Deadline:    cfg.deadline,
		Timeout:     cfg.timeout,
	})
}

// SubmitTask queues a copy of t and returns its ID, generating one when t.ID
// is empty. It never blocks on execution and may be called at any time,
// including while tasks are running. After Shutdown it returns ErrExecutorClosed.
func (e *Executor) SubmitTask(t Task) (string, error) {
	if !t.Priority.Valid() {
		return "", fmt.Errorf("%w: %d", ErrUnknownPriority, int(t.Priority))
	}
	if t.Work == nil {
		return "", ErrNilWork
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.SubmittedAt = time.Now()

	job := &rtm.Job{
		ID:          t.ID,
		Name:        t.Name,
		Priority:    int(t.Priority),
		Work:        worker.Work(t.Work),
		Timeout:     t.Timeout,
		Deadline:    t.Deadline,
		SubmittedAt: t.SubmittedAt,
	}
	// register first so Lookup never misses a task a slot already picked up
	e.mu.Lock()
	if _, dup := e.tasks[t.ID]; dup {
		e.mu.Unlock()
		return "", ErrDuplicateTask
	}
	e.tasks[t.ID] = t
	e.mu.Unlock()

	if err := e.rt.Submit(job); err != nil {
		e.mu.Lock()
		delete(e.tasks, t.ID)
		e.mu.Unlock()
		return "", err
	}
	e.log.Debugf("submitted: id=%s name=%s priority=%s", t.ID, t.Name, t.Priority)
	return t.ID, nil
}

// Start launches the execution slots. It is idempotent and non-blocking.
// Tasks submitted before Start wait in the pending queue.
func (e *Executor) Start() {
	e.rt.Start()
}

// WaitUntilDrained blocks until nothing is pending or in flight, or until
// timeout elapses. A timeout <= 0 waits without bound.
func (e *Executor) WaitUntilDrained(timeout time.Duration) DrainStatus {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return e.WaitUntilDrainedContext(ctx)
}

// WaitUntilDrainedContext is WaitUntilDrained bounded by ctx instead of a timeout.
func (e *Executor) WaitUntilDrainedContext(ctx context.Context) DrainStatus {
	if e.rt.Wait(ctx) {
		return Drained
	}
	return TimedOut
}

// IsDrained reports, without blocking, whether nothing is pending or in flight.
func (e *Executor) IsDrained() bool { return e.rt.Drained() }

// Shutdown stops dispatching, reports every pending task to the sinks as
// failed with ErrCancelled, and waits for in-flight tasks to finish. It is
// safe to call more than once and before Start. Do not call it from a sink.
func (e *Executor) Shutdown() {
	_ = e.ShutdownContext(context.Background())
}

// ShutdownContext is Shutdown bounded by ctx. If ctx ends before in-flight
// tasks finish, their work context is cancelled and ctx.Err() is returned.
func (e *Executor) ShutdownContext(ctx context.Context) error {
	return e.rt.Shutdown(ctx)
}

// Status returns the current state of a task. ok is false for unknown IDs.
func (e *Executor) Status(id string) (State, bool) {
	s, ok := e.rt.Status(id)
	if !ok {
		return "", false
	}
	return stateFromStatus(s), true
}

// Lookup returns the task submitted under id. Work is nil once the task has
// completed or been cancelled.
func (e *Executor) Lookup(id string) (Task, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.tasks[id]
	return t, ok
}

// Completed returns the completions recorded so far, in completion order.
func (e *Executor) Completed() []Completion {
	cs := e.rt.Completed()
	out := make([]Completion, len(cs))
	for i, c := range cs {
		out[i] = completionFrom(c)
	}
	return out
}

// InFlight returns the tasks currently running, oldest first.
func (e *Executor) InFlight() []Flight {
	fs := e.rt.InFlight()
	out := make([]Flight, len(fs))
	for i, f := range fs {
		out[i] = Flight{
			TaskID:    f.ID,
			Name:      f.Name,
			Priority:  Priority(f.Priority),
			StartedAt: f.StartedAt,
			Progress:  f.Progress,
		}
	}
	return out
}

// Stats returns a snapshot of the executor counters.
func (e *Executor) Stats() Stats {
	s := e.rt.Stats()
	return Stats{
		Concurrency: s.Concurrency,
		Pending:     s.Pending,
		InFlight:    s.InFlight,
		Completed:   s.Completed,
		Started:     s.Started,
		Closed:      s.Closed,
	}
}

func (e *Executor) wrap(w worker.Work) worker.Work {
	e.mu.RLock()
	mws := e.mws
	e.mu.RUnlock()
	if len(mws) == 0 {
		return w
	}
	return worker.Work(chain(WorkFunc(w), mws))
}

// dispatch fans a completion out to every sink. A panicking sink is logged
// and does not prevent the remaining sinks from being notified.
func (e *Executor) dispatch(rc rtm.Completion) {
	c := completionFrom(rc)
	e.mu.Lock()
	if t, ok := e.tasks[c.TaskID]; ok {
		t.Work = nil
		e.tasks[c.TaskID] = t
	}
	sinks := e.sinks
	e.mu.Unlock()
	for _, s := range sinks {
		e.notifyOne(s, c)
	}
}

func (e *Executor) notifyOne(s CompletionSink, c Completion) {
	defer func() {
		if p := recover(); p != nil {
			e.log.Errorf("sink panic: id=%s sink=%T panic=%v", c.TaskID, s, p)
		}
	}()
	s.Notify(c)
}
