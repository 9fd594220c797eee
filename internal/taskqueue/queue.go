// Package taskqueue runs one-off jobs off the caller's goroutine in
// submission order on a small fixed pool of workers.
package taskqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Defaults applied when Config fields are unset.
const (
	defaultCapacity = 32
	defaultWorkers  = 1
	defaultRetain   = 256
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// Handler executes a task payload. It should poll ctx and return ctx.Err()
// promptly once the task is cancelled.
type Handler func(ctx context.Context, payload any) (any, error)

// Result is the outcome delivered exactly once per task.
type Result struct {
	ID     string
	Status Status
	Value  any
	Err    string
}

// Info is a point-in-time view of a task.
type Info struct {
	ID          string
	Status      Status
	SubmittedAt time.Time
	Result      *Result
}

// Stats are queue counters.
type Stats struct {
	Capacity  int
	Workers   int
	Pending   int
	Running   int
	Succeeded uint64
	Failed    uint64
	Cancelled uint64
}

// Config configures a Queue.
type Config struct {
	Handler  Handler
	Capacity int // maximum pending tasks
	Workers  int
	Retain   int // finished tasks kept for lookups
	Logger   zerolog.Logger
}

// SubmitOption configures a single submission.
type SubmitOption func(*task)

// OnComplete registers a callback invoked exactly once with the result.
// It runs on the goroutine that resolved the task.
func OnComplete(fn func(Result)) SubmitOption {
	return func(t *task) { t.onDone = fn }
}

type task struct {
	id          string
	payload     any
	submittedAt time.Time
	onDone      func(Result)
	ctx         context.Context
	cancel      context.CancelFunc
	status      Status
	result      Result
	done        chan struct{}
}

// Queue is a bounded FIFO of tasks.
type Queue struct {
	handler  Handler
	capacity int
	workers  int
	retain   int
	log      zerolog.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	pending  []*task
	tasks    map[string]*task
	finished []string
	running  int
	closed   bool
	stats    Stats

	wg sync.WaitGroup
}

// New starts a Queue with its workers.
func New(cfg Config) *Queue {
	q := &Queue{
		handler: cfg.Handler,
		log:     cfg.Logger.With().Str("component", "taskqueue").Logger(),
		tasks:   make(map[string]*task),
	}
	if cfg.Capacity <= 0 {
		q.capacity = defaultCapacity
	} else {
		q.capacity = cfg.Capacity
	}
	if cfg.Workers <= 0 {
		q.workers = defaultWorkers
	} else {
		q.workers = cfg.Workers
	}
	if cfg.Retain <= 0 {
		q.retain = defaultRetain
	} else {
		q.retain = cfg.Retain
	}
	if q.handler == nil {
		q.handler = func(context.Context, any) (any, error) { return nil, errors.New("no handler") }
	}
	q.cond = sync.NewCond(&q.mu)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	return q
}

// Submit enqueues payload and returns its id without blocking. At capacity
// it returns ErrQueueFull.
func (q *Queue) Submit(payload any, opts ...SubmitOption) (string, error) {
	ctx, cancel := context.WithCancel(context.Background())
	t := &task{
		id:          uuid.NewString(),
		payload:     payload,
		submittedAt: time.Now(),
		ctx:         ctx,
		cancel:      cancel,
		status:      StatusPending,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		cancel()
		return "", ErrQueueClosed
	}
	if len(q.pending) >= q.capacity {
		q.mu.Unlock()
		cancel()
		tasksTotal.WithLabelValues("rejected").Inc()
		return "", ErrQueueFull
	}
	q.pending = append(q.pending, t)
	q.tasks[t.id] = t
	q.cond.Signal()
	q.mu.Unlock()
	q.log.Debug().Str("task", t.id).Msg("task submitted")
	return t.id, nil
}

// Await blocks until the task resolves or ctx is done.
func (q *Queue) Await(ctx context.Context, id string) (Result, error) {
	q.mu.Lock()
	t := q.tasks[id]
	q.mu.Unlock()
	if t == nil {
		return Result{}, ErrTaskNotFound
	}
	select {
	case <-t.done:
		q.mu.Lock()
		defer q.mu.Unlock()
		return t.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Get returns the current view of a task.
func (q *Queue) Get(id string) (Info, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t := q.tasks[id]
	if t == nil {
		return Info{}, false
	}
	info := Info{ID: t.id, Status: t.status, SubmittedAt: t.submittedAt}
	if t.status.Terminal() {
		r := t.result
		info.Result = &r
	}
	return info, true
}

// Cancel cancels a task. A pending task is removed and resolves as
// cancelled without running. A running task has its context cancelled and
// resolves with whatever its handler returns.
func (q *Queue) Cancel(id string) error {
	q.mu.Lock()
	t := q.tasks[id]
	if t == nil {
		q.mu.Unlock()
		return ErrTaskNotFound
	}
	switch t.status {
	case StatusPending:
		q.removePendingLocked(t)
		r := q.resolveLocked(t, StatusCancelled, nil, context.Canceled)
		q.mu.Unlock()
		q.deliver(t, r)
	case StatusRunning:
		q.mu.Unlock()
		t.cancel()
	default:
		q.mu.Unlock()
	}
	return nil
}

// CancelAll cancels every pending and running task.
func (q *Queue) CancelAll() int {
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	type resolved struct {
		t *task
		r Result
	}
	out := make([]resolved, 0, len(pending))
	for _, t := range pending {
		out = append(out, resolved{t, q.resolveLocked(t, StatusCancelled, nil, context.Canceled)})
	}
	var running []*task
	for _, t := range q.tasks {
		if t.status == StatusRunning {
			running = append(running, t)
		}
	}
	q.mu.Unlock()
	for _, t := range running {
		t.cancel()
	}
	for _, x := range out {
		q.deliver(x.t, x.r)
	}
	if n := len(out) + len(running); n > 0 {
		q.log.Info().Int("pending", len(out)).Int("running", len(running)).Msg("tasks cancelled")
	}
	return len(out) + len(running)
}

// Close cancels outstanding work and stops the workers.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
	q.CancelAll()
	q.wg.Wait()
}

// Stats returns queue counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := q.stats
	s.Capacity = q.capacity
	s.Workers = q.workers
	s.Pending = len(q.pending)
	s.Running = q.running
	return s
}

func (q *Queue) worker(n int) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.pending) == 0 && q.closed {
			q.mu.Unlock()
			return
		}
		t := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		t.status = StatusRunning
		q.running++
		q.mu.Unlock()

		val, err := q.execute(t)

		q.mu.Lock()
		q.running--
		var r Result
		switch {
		case err == nil:
			r = q.resolveLocked(t, StatusSucceeded, val, nil)
		case t.ctx.Err() != nil && errors.Is(err, context.Canceled):
			r = q.resolveLocked(t, StatusCancelled, nil, err)
		default:
			r = q.resolveLocked(t, StatusFailed, nil, err)
		}
		q.mu.Unlock()
		q.deliver(t, r)
		q.log.Debug().Int("worker", n).Str("task", t.id).Str("status", string(r.Status)).Msg("task finished")
	}
}

func (q *Queue) execute(t *task) (val any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task panicked: %v", rec)
			q.log.Error().Str("task", t.id).Interface("panic", rec).Msg("task panicked")
		}
	}()
	return q.handler(t.ctx, t.payload)
}

func (q *Queue) removePendingLocked(t *task) {
	for i, p := range q.pending {
		if p == t {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return
		}
	}
}

// resolveLocked records the result; it must be called at most once per task.
func (q *Queue) resolveLocked(t *task, st Status, val any, err error) Result {
	t.status = st
	t.result = Result{ID: t.id, Status: st, Value: val}
	if err != nil {
		t.result.Err = err.Error()
	}
	switch st {
	case StatusSucceeded:
		q.stats.Succeeded++
	case StatusFailed:
		q.stats.Failed++
	case StatusCancelled:
		q.stats.Cancelled++
	}
	tasksTotal.WithLabelValues(string(st)).Inc()
	t.cancel()
	close(t.done)
	q.finished = append(q.finished, t.id)
	for len(q.finished) > q.retain {
		delete(q.tasks, q.finished[0])
		q.finished = q.finished[1:]
	}
	return t.result
}

func (q *Queue) deliver(t *task, r Result) {
	if t.onDone == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			q.log.Error().Str("task", t.id).Interface("panic", rec).Msg("completion callback panicked")
		}
	}()
	t.onDone(r)
}
