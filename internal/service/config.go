package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"eodd/internal/feed"
	"eodd/internal/kv"
	"eodd/internal/notify"
	"eodd/internal/scheduler"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultTickInterval     = 2 * time.Second
	defaultSpawnProbability = 0.5
	defaultReminderInterval = 2 * time.Hour
	defaultWeatherTimeout   = 5 * time.Second

	// missed bug ticks replayed after the worker falls behind
	tickCatchUp = 3
)

// WeatherSource is the value source behind WeatherUpdated events.
// *feed.Feed satisfies it.
type WeatherSource interface {
	Fetch(ctx context.Context, timeout time.Duration) feed.Outcome
}

// Config encapsulates the tunables and collaborators of a Service.
type Config struct {
	TickInterval     time.Duration
	SpawnProbability float64 // chance per tick; values above 1 are clamped
	NotifyEvery      int
	NotifyCooldown   time.Duration // negative disables the cool-down
	ReminderInterval time.Duration
	ReminderCron     string        // takes precedence over ReminderInterval
	WeatherInterval  time.Duration // zero disables periodic refreshes
	WeatherTimeout   time.Duration
	LoginDelay       time.Duration
	QueueCapacity    int
	QueueWorkers     int

	Store   kv.Store
	Sink    notify.Sink
	Weather WeatherSource
	Clock   scheduler.Clock
	Rand    func() float64
	Logger  zerolog.Logger
}

// Tunables are the settings that can change while the worker runs.
type Tunables struct {
	SpawnProbability float64
	NotifyEvery      int
	NotifyCooldown   time.Duration
}

func (c *Config) applyDefaults() {
	if c.TickInterval <= 0 {
		c.TickInterval = defaultTickInterval
	}
	c.SpawnProbability = clampProbability(c.SpawnProbability)
	if c.ReminderInterval <= 0 {
		c.ReminderInterval = defaultReminderInterval
	}
	if c.WeatherTimeout <= 0 {
		c.WeatherTimeout = defaultWeatherTimeout
	}
	if c.Store == nil {
		c.Store = kv.NewMemory()
	}
	if c.Sink == nil {
		c.Sink = notify.NopSink{}
	}
	if c.Clock == nil {
		c.Clock = scheduler.RealClock{}
	}
	if c.Weather == nil {
		c.Weather = feed.New(feed.Config{Logger: c.Logger})
	}
}

func clampProbability(p float64) float64 {
	switch {
	case p <= 0:
		return defaultSpawnProbability
	case p > 1:
		return 1
	default:
		return p
	}
}
