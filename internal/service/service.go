package service

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"eodd/internal/broadcast"
	"eodd/internal/feed"
	"eodd/internal/kv"
	"eodd/internal/lifecycle"
	"eodd/internal/notify"
	"eodd/internal/scheduler"
	"eodd/internal/taskqueue"
	"eodd/pkg/types"
)

// Service is the background worker. It starts Stopped and is driven by the
// lifecycle requests Start, Bind, Unbind, Promote and Stop.
type Service struct {
	cfg     Config
	log     zerolog.Logger
	clock   scheduler.Clock
	rand    func() float64
	store   kv.Store
	weather WeatherSource

	bcast     *broadcast.Broadcaster
	gate      *notify.Gate
	notes     *notify.Async
	queue     *taskqueue.Queue
	bugs      *scheduler.Scheduler
	forecasts *scheduler.Scheduler
	reminders *scheduler.Scheduler

	// transMu serializes lifecycle transitions and their side effects.
	transMu sync.Mutex

	mu             sync.RWMutex
	mode           lifecycle.Mode
	bugCount       int
	ticks          uint64
	spawnProb      float64
	weatherOut     feed.Outcome
	login          types.LoginStatus
	bugHandle      *scheduler.Handle
	weatherHandle  *scheduler.Handle
	reminderHandle *scheduler.Handle
	ongoing        bool
	closed         bool
	startedAt      time.Time
}

// New constructs a Service in the Stopped mode. Unset Config fields get
// package defaults: an in-memory store, a no-op sink, a fallback-only
// weather feed and the wall clock.
func New(cfg Config) *Service {
	cfg.applyDefaults()
	s := &Service{
		cfg:       cfg,
		log:       cfg.Logger.With().Str("component", "service").Logger(),
		clock:     cfg.Clock,
		rand:      cfg.Rand,
		store:     cfg.Store,
		weather:   cfg.Weather,
		mode:      lifecycle.Stopped,
		spawnProb: cfg.SpawnProbability,
	}
	if s.rand == nil {
		s.rand = rand.Float64
	}
	s.startedAt = s.clock.Now()
	// Collaborators tag their own component field.
	root := cfg.Logger
	s.bcast = broadcast.New(s.clock, root)
	s.gate = notify.NewGate(notify.Policy{Cooldown: cfg.NotifyCooldown, Every: cfg.NotifyEvery}, root)
	s.notes = notify.NewAsync(cfg.Sink, root)
	s.queue = taskqueue.New(taskqueue.Config{
		Handler:  s.runTask,
		Capacity: cfg.QueueCapacity,
		Workers:  cfg.QueueWorkers,
		Logger:   root,
	})
	opts := []scheduler.Option{scheduler.WithClock(s.clock), scheduler.WithLogger(root)}
	s.bugs = scheduler.New("bugs", append(opts, scheduler.WithCatchUp(tickCatchUp))...)
	s.forecasts = scheduler.New("weather", opts...)
	s.reminders = scheduler.New("reminder", opts...)
	setModeGauge(lifecycle.Stopped)
	return s
}

// Mode returns the current lifecycle mode.
func (s *Service) Mode() lifecycle.Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// Ready reports whether the worker is running.
func (s *Service) Ready() bool { return s.Mode().Running() }

// Observers returns the number of bound observers.
func (s *Service) Observers() int { return s.bcast.Len() }

// UpdateTunables changes the spawn probability and notification policy in
// place. Running schedules are not restarted.
func (s *Service) UpdateTunables(t Tunables) {
	s.mu.Lock()
	s.spawnProb = clampProbability(t.SpawnProbability)
	s.mu.Unlock()
	s.gate.SetPolicy(notify.Policy{Cooldown: t.NotifyCooldown, Every: t.NotifyEvery})
	s.log.Info().
		Float64("spawn_probability", t.SpawnProbability).
		Int("notify_every", t.NotifyEvery).
		Dur("notify_cooldown", t.NotifyCooldown).
		Msg("tunables updated")
}

// Close stops the worker, cancels the boot reminder and shuts the task
// queue and the notification renderer down. It is idempotent and must not
// be called from a notification sink.
func (s *Service) Close() {
	if _, err := s.Stop(); err != nil {
		s.log.Warn().Err(err).Msg("stop on close")
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.reminderHandle = nil
	s.mu.Unlock()
	s.reminders.CancelAll()
	s.queue.Close()
	s.notes.Close()
	s.log.Info().Msg("service closed")
}

func setModeGauge(m lifecycle.Mode) {
	for _, v := range []lifecycle.Mode{lifecycle.Stopped, lifecycle.Started, lifecycle.Bound, lifecycle.Foreground} {
		val := 0.0
		if v == m {
			val = 1
		}
		modeGauge.WithLabelValues(string(v)).Set(val)
	}
}
