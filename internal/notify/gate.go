// Package notify decides which worker events become user notifications and
// hands the resulting descriptors to a sink.
package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"eodd/internal/events"
	"eodd/internal/lifecycle"
)

// Channel ids and dedup keys.
const (
	ChannelGame     = "game-state"
	ChannelReminder = "reminder"
	ChannelOngoing  = "ongoing"

	KeyBugSpawn = "bug-spawn"
	KeyReminder = "charge-reminder"
	KeyOngoing  = "ongoing"
)

const defaultCooldown = 30 * time.Second

// Descriptor describes a notification. It is never persisted.
type Descriptor struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	ChannelID string `json:"channel_id"`
	DedupKey  string `json:"dedup_key"`
	Ongoing   bool   `json:"ongoing,omitempty"`
}

// Policy holds the tunable parts of the gate.
type Policy struct {
	// Cooldown suppresses repeats of a dedup key inside the window.
	Cooldown time.Duration
	// Every turns only every n-th bug into a notification; <=1 means all.
	Every int
}

// Gate applies the notification policy. Its only state is the per-key
// history of the last emission.
type Gate struct {
	mu      sync.Mutex
	policy  Policy
	history map[string]time.Time
	log     zerolog.Logger
}

// NewGate returns a Gate. A zero Cooldown gets the package default; use a
// negative value to disable the cool-down.
func NewGate(p Policy, log zerolog.Logger) *Gate {
	return &Gate{
		policy:  normalize(p),
		history: make(map[string]time.Time),
		log:     log.With().Str("component", "notify").Logger(),
	}
}

func normalize(p Policy) Policy {
	if p.Cooldown == 0 {
		p.Cooldown = defaultCooldown
	}
	if p.Cooldown < 0 {
		p.Cooldown = 0
	}
	if p.Every < 1 {
		p.Every = 1
	}
	return p
}

// SetPolicy replaces the policy; history is kept.
func (g *Gate) SetPolicy(p Policy) {
	g.mu.Lock()
	g.policy = normalize(p)
	g.mu.Unlock()
}

// Policy returns the active policy.
func (g *Gate) Policy() Policy {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.policy
}

// Reset forgets emission history.
func (g *Gate) Reset() {
	g.mu.Lock()
	g.history = make(map[string]time.Time)
	g.mu.Unlock()
}

// Evaluate returns the notification for e, if any, given the worker mode.
//   - nothing is emitted while Stopped;
//   - in Foreground a bug refreshes the ongoing notification in place;
//   - otherwise bugs and reminders are subject to the per-key cool-down;
//   - login and weather events are observer-only.
func (g *Gate) Evaluate(e events.Event, mode lifecycle.Mode, now time.Time) (Descriptor, bool) {
	if !mode.Running() {
		return g.drop(e, "stopped")
	}
	switch e.Kind {
	case events.BugSpawned:
		if mode == lifecycle.Foreground {
			decisionsTotal.WithLabelValues("ongoing").Inc()
			return Ongoing(e.Count), true
		}
		if every := g.Policy().Every; every > 1 && e.Count%every != 0 {
			return g.drop(e, "sampled")
		}
		return g.admit(e, Descriptor{
			Title:     "A bug spawned!",
			Body:      fmt.Sprintf("%d bugs are loose. Come back and squash them.", e.Count),
			ChannelID: ChannelGame,
			DedupKey:  KeyBugSpawn,
		}, now)
	case events.ReminderDue:
		return g.admit(e, Descriptor{
			Title:     "Charge your phone",
			Body:      "Plug in so the bugs can't catch you with a flat battery.",
			ChannelID: ChannelReminder,
			DedupKey:  KeyReminder,
		}, now)
	default:
		return g.drop(e, "not_notifiable")
	}
}

// Ongoing builds the persistent foreground notification.
func Ongoing(bugs int) Descriptor {
	return Descriptor{
		Title:     "EOD is running",
		Body:      fmt.Sprintf("Bugs spawned: %d", bugs),
		ChannelID: ChannelOngoing,
		DedupKey:  KeyOngoing,
		Ongoing:   true,
	}
}

func (g *Gate) admit(e events.Event, d Descriptor, now time.Time) (Descriptor, bool) {
	g.mu.Lock()
	last, seen := g.history[d.DedupKey]
	if seen && g.policy.Cooldown > 0 && now.Sub(last) < g.policy.Cooldown {
		g.mu.Unlock()
		return g.drop(e, "cooldown")
	}
	g.history[d.DedupKey] = now
	g.mu.Unlock()
	decisionsTotal.WithLabelValues("emitted").Inc()
	return d, true
}

func (g *Gate) drop(e events.Event, reason string) (Descriptor, bool) {
	decisionsTotal.WithLabelValues(reason).Inc()
	g.log.Debug().Str("kind", string(e.Kind)).Str("reason", reason).Msg("notification suppressed")
	return Descriptor{}, false
}
