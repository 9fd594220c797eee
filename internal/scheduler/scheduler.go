// Package scheduler runs callbacks on repeating timers. Every schedule owns
// its goroutine and timer; independent schedules never share state.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Func is a scheduled callback. ctx is cancelled when the schedule is.
type Func func(ctx context.Context)

// Schedule yields the next fire time after t. A zero result ends the schedule.
// cron.Schedule satisfies it.
type Schedule interface {
	Next(t time.Time) time.Time
}

// ErrInvalidInterval is returned for non-positive intervals.
var ErrInvalidInterval = errors.New("scheduler: interval must be positive")

type every time.Duration

func (e every) Next(t time.Time) time.Time { return t.Add(time.Duration(e)) }

// Every returns a fixed-interval schedule.
func Every(d time.Duration) Schedule { return every(d) }

// ParseSchedule parses a standard five-field cron expression or a
// descriptor such as "@hourly".
func ParseSchedule(spec string) (Schedule, error) {
	s, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return s, nil
}

// Scheduler creates and tracks schedules sharing a clock and logger.
type Scheduler struct {
	name  string
	clock Clock
	log   zerolog.Logger

	catchUp int

	mu      sync.Mutex
	nextID  uint64
	handles map[uint64]*Handle
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock (defaults to RealClock).
func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithCatchUp lets a schedule that fell behind replay up to n overdue
// occurrences before it skips ahead. The default is 0: only the latest
// overdue occurrence fires.
func WithCatchUp(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.catchUp = n
		}
	}
}

// New returns a Scheduler. name labels logs and metrics.
func New(name string, opts ...Option) *Scheduler {
	s := &Scheduler{
		name:    name,
		clock:   RealClock{},
		log:     zerolog.Nop(),
		handles: make(map[uint64]*Handle),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("component", "scheduler").Str("scheduler", name).Logger()
	return s
}

// Name returns the scheduler's name.
func (s *Scheduler) Name() string { return s.name }

// Schedule invokes fn every interval, starting one interval from now.
func (s *Scheduler) Schedule(interval time.Duration, fn Func) (*Handle, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	return s.ScheduleSpec(Every(interval), fn)
}

// ScheduleSpec invokes fn at each time produced by sched.
func (s *Scheduler) ScheduleSpec(sched Schedule, fn Func) (*Handle, error) {
	if sched == nil || fn == nil {
		return nil, errors.New("scheduler: nil schedule or callback")
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.nextID++
	h := &Handle{
		id:     s.nextID,
		owner:  s,
		ctx:    ctx,
		cancel: cancel,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	s.handles[h.id] = h
	s.mu.Unlock()

	first := sched.Next(s.clock.Now())
	h.setNext(first)
	go s.run(h, sched, fn, first)
	s.log.Debug().Uint64("handle", h.id).Time("first", first).Msg("schedule created")
	return h, nil
}

// Cancel cancels h. It is equivalent to h.Cancel().
func (s *Scheduler) Cancel(h *Handle) {
	if h != nil {
		h.Cancel()
	}
}

// CancelAll cancels every live schedule.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	hs := make([]*Handle, 0, len(s.handles))
	for _, h := range s.handles {
		hs = append(hs, h)
	}
	s.mu.Unlock()
	for _, h := range hs {
		h.Cancel()
	}
}

// Len returns the number of live schedules.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

func (s *Scheduler) forget(h *Handle) {
	s.mu.Lock()
	delete(s.handles, h.id)
	s.mu.Unlock()
}

func (s *Scheduler) run(h *Handle, sched Schedule, fn Func, next time.Time) {
	defer close(h.done)
	budget := s.catchUp
	for !next.IsZero() {
		t := s.clock.NewTimer(next.Sub(s.clock.Now()))
		select {
		case <-h.stop:
			t.Stop()
			return
		case <-t.C():
		}

		h.mu.Lock()
		if h.cancelled.Load() {
			h.mu.Unlock()
			return
		}
		s.invoke(h, fn)
		h.fires.Add(1)
		h.mu.Unlock()
		ticksTotal.WithLabelValues(s.name).Inc()

		// Anchor on the planned fire time. Overdue occurrences are replayed
		// back to back while the catch-up budget lasts; beyond it the latest
		// overdue one fires now and the rest are dropped.
		now := s.clock.Now()
		next = sched.Next(next)
		switch {
		case next.IsZero() || next.After(now):
			budget = s.catchUp
		case budget > 0:
			budget--
		default:
			skipped := 0
			for {
				after := sched.Next(next)
				if after.IsZero() || after.After(now) {
					break
				}
				next = after
				skipped++
			}
			if skipped > 0 {
				skippedTotal.WithLabelValues(s.name).Add(float64(skipped))
				s.log.Warn().Uint64("handle", h.id).Int("skipped", skipped).Msg("schedule fell behind")
			}
		}
		h.setNext(next)
	}
	s.forget(h)
}

func (s *Scheduler) invoke(h *Handle, fn Func) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Uint64("handle", h.id).Interface("panic", r).Msg("scheduled callback panicked")
		}
	}()
	fn(h.ctx)
}

// Handle identifies one schedule. Handles are single-use: once cancelled a
// handle stays cancelled and a new Schedule call returns a fresh one.
type Handle struct {
	id     uint64
	owner  *Scheduler
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex // held while the callback runs
	cancelled atomic.Bool
	once      sync.Once
	stop      chan struct{}
	done      chan struct{}
	fires     atomic.Uint64
	next      atomic.Int64
}

func (h *Handle) ID() uint64 { return h.id }

// Fires returns how many times the callback has run.
func (h *Handle) Fires() uint64 { return h.fires.Load() }

// Cancelled reports whether Cancel has been called.
func (h *Handle) Cancelled() bool { return h.cancelled.Load() }

// NextRun returns the planned time of the next invocation, zero when none.
func (h *Handle) NextRun() time.Time {
	n := h.next.Load()
	if n == 0 || h.cancelled.Load() {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func (h *Handle) setNext(t time.Time) {
	if t.IsZero() {
		h.next.Store(0)
		return
	}
	h.next.Store(t.UnixNano())
}

// Done is closed once the schedule's goroutine has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Cancel stops the schedule. When it returns no invocation is running and
// none will start. It must not be called from the handle's own callback.
func (h *Handle) Cancel() {
	h.once.Do(func() {
		h.cancelled.Store(true)
		h.cancel()
		close(h.stop)
		h.owner.forget(h)
	})
	// Wait out an in-flight callback.
	h.mu.Lock()
	h.mu.Unlock()
}
