package runtime

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/UniQw/prioexec/internal/hctx"
	"github.com/UniQw/prioexec/internal/pqueue"
	"github.com/UniQw/prioexec/internal/worker"
)

var (
	// ErrClosed is returned by Submit once Shutdown has been called.
	ErrClosed = errors.New("prioexec: executor closed")
	// ErrCancelled is the outcome of pending jobs discarded by Shutdown.
	ErrCancelled = errors.New("prioexec: task cancelled")
	// ErrExpired is the outcome of a job whose deadline passed before a slot picked it up.
	ErrExpired = errors.New("prioexec: task expired before start")
	// ErrDuplicate is returned by Submit for an ID the runtime has already seen.
	ErrDuplicate = errors.New("prioexec: duplicate task id")
)

// Logger is a minimal logging interface used internally by the runtime.
// It mirrors the public logger in the root package to avoid an import cycle.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Infof(string, ...any)  {}
func (noopLogger) Warnf(string, ...any)  {}
func (noopLogger) Errorf(string, ...any) {}

type Config struct {
	Concurrency int
	// TaskTimeout applies to jobs without their own Timeout. Zero disables it.
	TaskTimeout time.Duration
	Logger      Logger
	// Wrap, when set, decorates every job's work right before it runs.
	Wrap func(worker.Work) worker.Work
}

// Status is the lifecycle position of a job ID.
type Status int

const (
	StatusPending Status = iota + 1
	StatusActive
	StatusSucceeded
	StatusFailed
	StatusCancelled
)

// Job is one submitted unit of work.
type Job struct {
	ID          string
	Name        string
	Priority    int
	Work        worker.Work
	Timeout     time.Duration
	Deadline    time.Time
	SubmittedAt time.Time
}

// Completion is the recorded outcome of a job.
type Completion struct {
	ID          string
	Name        string
	Priority    int
	Value       any
	Err         error
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
}

// Flight describes a job currently occupying a slot.
type Flight struct {
	ID        string
	Name      string
	Priority  int
	StartedAt time.Time
	Progress  int
}

// Stats is a point-in-time snapshot of the runtime.
type Stats struct {
	Concurrency int
	Pending     int
	InFlight    int
	Completed   int
	Started     bool
	Closed      bool
}

// Notifier receives every completion exactly once.
type Notifier func(Completion)

type flight struct {
	job       *Job
	startedAt time.Time
	state     *hctx.State
}

// Runtime owns the pending queue, the in-flight set and the completed sequence
// and runs jobs on a fixed number of slot goroutines.
type Runtime struct {
	cfg    Config
	notify Notifier
	log    Logger

	// ctx is handed to running work; it is cancelled only when a bounded
	// shutdown gives up waiting.
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	cond      *sync.Cond
	pending   *pqueue.Queue[*Job]
	inFlight  map[string]*flight
	completed []Completion
	status    map[string]Status
	// busy counts slots between pop and the end of notification.
	busy      int
	drained   chan struct{}
	isDrained bool
	// stopped is closed once Shutdown has delivered every cancellation.
	stopped   chan struct{}
	started   bool
	closed    bool
	wg        sync.WaitGroup
}

// New creates a runtime. Concurrency must be validated by the caller.
func New(cfg Config, notify Notifier) *Runtime {
	ctx, cancel := context.WithCancel(context.Background())
	lg := cfg.Logger
	if lg == nil {
		lg = noopLogger{}
	}
	if notify == nil {
		notify = func(Completion) {}
	}
	drained := make(chan struct{})
	close(drained)
	rt := &Runtime{
		cfg:       cfg,
		notify:    notify,
		log:       lg,
		ctx:       ctx,
		cancel:    cancel,
		pending:   pqueue.New[*Job](),
		inFlight:  make(map[string]*flight),
		status:    make(map[string]Status),
		drained:   drained,
		isDrained: true,
		stopped:   make(chan struct{}),
	}
	rt.cond = sync.NewCond(&rt.mu)
	return rt
}

// Submit queues a job. It never blocks on execution.
func (rt *Runtime) Submit(job *Job) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.closed {
		return ErrClosed
	}
	if _, seen := rt.status[job.ID]; seen {
		return ErrDuplicate
	}
	if rt.isDrained {
		rt.drained = make(chan struct{})
		rt.isDrained = false
	}
	rt.status[job.ID] = StatusPending
	rt.pending.Push(job.Priority, job)
	rt.cond.Signal()
	return nil
}

// Start launches the slot goroutines. It is idempotent and non-blocking.
func (rt *Runtime) Start() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.closed {
		rt.log.Warnf("runtime closed; ignoring Start()")
		return
	}
	if rt.started {
		rt.log.Warnf("runtime already started; ignoring Start()")
		return
	}
	rt.started = true
	rt.log.Infof("runtime starting: concurrency=%d pending=%d", rt.cfg.Concurrency, rt.pending.Len())
	for i := 0; i < rt.cfg.Concurrency; i++ {
		rt.wg.Add(1)
		go func() {
			defer rt.wg.Done()
			rt.slotLoop()
		}()
	}
}

// Shutdown stops dispatch, cancels every pending job and waits for in-flight
// jobs to finish. If ctx ends first, the work context is cancelled and
// ctx.Err() is returned without waiting further. Every call, concurrent ones
// included, returns only after all cancellations were delivered.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	rt.mu.Lock()
	var cancelled []Completion
	first := !rt.closed
	if first {
		rt.closed = true
		now := time.Now()
		for _, job := range rt.pending.Drain() {
			c := Completion{
				ID:          job.ID,
				Name:        job.Name,
				Priority:    job.Priority,
				Err:         ErrCancelled,
				StartedAt:   now,
				CompletedAt: now,
			}
			rt.status[job.ID] = StatusCancelled
			rt.completed = append(rt.completed, c)
			cancelled = append(cancelled, c)
		}
		// hold the drain signal until every cancellation is delivered
		rt.busy++
		rt.cond.Broadcast()
		rt.log.Infof("runtime stopping: cancelled=%d in_flight=%d", len(cancelled), len(rt.inFlight))
	}
	rt.mu.Unlock()

	if first {
		for _, c := range cancelled {
			rt.safeNotify(c)
		}
		rt.mu.Lock()
		rt.busy--
		rt.checkDrainedLocked()
		rt.mu.Unlock()
		close(rt.stopped)
	}

	select {
	case <-rt.stopped:
	case <-ctx.Done():
		rt.cancel()
		rt.log.Warnf("runtime stop interrupted; in-flight work signalled to cancel")
		return ctx.Err()
	}

	done := make(chan struct{})
	go func() {
		rt.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		rt.cancel()
		rt.log.Warnf("runtime stop interrupted; in-flight work signalled to cancel")
		return ctx.Err()
	}
}

// Wait blocks until the runtime is drained or ctx ends. It reports whether
// the drained state was observed.
func (rt *Runtime) Wait(ctx context.Context) bool {
	rt.mu.Lock()
	ch := rt.drained
	rt.mu.Unlock()
	select {
	case <-ch:
		return true
	case <-ctx.Done():
		return false
	}
}

// Drained reports whether nothing is pending and no slot is busy.
func (rt *Runtime) Drained() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.isDrained
}

// Status returns the lifecycle status of id.
func (rt *Runtime) Status(id string) (Status, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	s, ok := rt.status[id]
	return s, ok
}

// Completed returns a copy of the completed sequence in completion order.
func (rt *Runtime) Completed() []Completion {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	out := make([]Completion, len(rt.completed))
	copy(out, rt.completed)
	return out
}

// InFlight returns the jobs currently running, oldest first.
func (rt *Runtime) InFlight() []Flight {
	rt.mu.Lock()
	out := make([]Flight, 0, len(rt.inFlight))
	for _, f := range rt.inFlight {
		out = append(out, Flight{
			ID:        f.job.ID,
			Name:      f.job.Name,
			Priority:  f.job.Priority,
			StartedAt: f.startedAt,
			Progress:  f.state.Progress(),
		})
	}
	rt.mu.Unlock()
	slices.SortFunc(out, func(a, b Flight) int { return a.StartedAt.Compare(b.StartedAt) })
	return out
}

// Stats returns a snapshot of the runtime counters.
func (rt *Runtime) Stats() Stats {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return Stats{
		Concurrency: rt.cfg.Concurrency,
		Pending:     rt.pending.Len(),
		InFlight:    len(rt.inFlight),
		Completed:   len(rt.completed),
		Started:     rt.started,
		Closed:      rt.closed,
	}
}

func (rt *Runtime) slotLoop() {
	for {
		rt.mu.Lock()
		for rt.pending.IsEmpty() && !rt.closed {
			rt.cond.Wait()
		}
		if rt.closed {
			rt.mu.Unlock()
			return
		}
		job, _ := rt.pending.Pop()
		f := &flight{job: job, startedAt: time.Now(), state: hctx.New(job.ID)}
		rt.busy++
		rt.inFlight[job.ID] = f
		rt.status[job.ID] = StatusActive
		rt.mu.Unlock()

		c := rt.execute(f)

		rt.mu.Lock()
		delete(rt.inFlight, job.ID)
		rt.completed = append(rt.completed, c)
		if c.Err != nil {
			rt.status[job.ID] = StatusFailed
		} else {
			rt.status[job.ID] = StatusSucceeded
		}
		rt.mu.Unlock()

		rt.safeNotify(c)

		rt.mu.Lock()
		rt.busy--
		rt.checkDrainedLocked()
		rt.mu.Unlock()
	}
}

func (rt *Runtime) execute(f *flight) Completion {
	job := f.job
	c := Completion{ID: job.ID, Name: job.Name, Priority: job.Priority, StartedAt: f.startedAt}

	// Expiry guard: a job past its deadline is failed without executing.
	if !job.Deadline.IsZero() && f.startedAt.After(job.Deadline) {
		c.Err = ErrExpired
		c.CompletedAt = f.startedAt
		rt.log.Warnf("expired: id=%s name=%s", job.ID, job.Name)
		return c
	}

	timeout := rt.cfg.TaskTimeout
	if job.Timeout > 0 {
		timeout = job.Timeout
	}
	work := job.Work
	if wrap := rt.cfg.Wrap; wrap != nil {
		inner := work
		// build the chain inside the work so a panicking wrapper is recovered like the work itself
		work = func(ctx context.Context) (any, error) { return wrap(inner)(ctx) }
	}
	ctx := hctx.WithState(rt.ctx, f.state)
	c.Value, c.Err = worker.Run(ctx, work, timeout)
	c.CompletedAt = time.Now()
	c.Duration = c.CompletedAt.Sub(f.startedAt)

	if c.Err != nil {
		rt.log.Warnf("task error: id=%s name=%s priority=%d dur=%s err=%v", job.ID, job.Name, job.Priority, c.Duration, c.Err)
	} else {
		rt.log.Debugf("processed: id=%s name=%s priority=%d dur=%s", job.ID, job.Name, job.Priority, c.Duration)
	}
	return c
}

func (rt *Runtime) safeNotify(c Completion) {
	defer func() {
		if p := recover(); p != nil {
			rt.log.Errorf("notifier panic: id=%s panic=%v", c.ID, p)
		}
	}()
	rt.notify(c)
}

func (rt *Runtime) checkDrainedLocked() {
	if rt.isDrained || rt.busy > 0 || !rt.pending.IsEmpty() {
		return
	}
	rt.isDrained = true
	close(rt.drained)
}
