package notify

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Sink renders notifications. Present with a dedup key that is already
// showing updates it in place. Both calls are fire-and-forget.
type Sink interface {
	Present(Descriptor)
	Dismiss(dedupKey string)
}

// NopSink drops everything.
type NopSink struct{}

func (NopSink) Present(Descriptor) {}
func (NopSink) Dismiss(string)     {}

// LogSink writes notifications to a logger.
type LogSink struct {
	Log zerolog.Logger
}

func (s LogSink) Present(d Descriptor) {
	s.Log.Info().
		Str("channel", d.ChannelID).
		Str("dedup_key", d.DedupKey).
		Bool("ongoing", d.Ongoing).
		Str("title", d.Title).
		Msg(d.Body)
}

func (s LogSink) Dismiss(key string) {
	s.Log.Info().Str("dedup_key", key).Msg("notification dismissed")
}

// MultiSink fans out to several sinks in order.
type MultiSink []Sink

func (m MultiSink) Present(d Descriptor) {
	for _, s := range m {
		s.Present(d)
	}
}

func (m MultiSink) Dismiss(key string) {
	for _, s := range m {
		s.Dismiss(key)
	}
}

// Record is a notification currently shown by a MemorySink.
type Record struct {
	Descriptor
	PresentedAt time.Time `json:"presented_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Updates     int       `json:"updates"`
}

// MemorySink keeps the visible notifications keyed by dedup key, like a
// notification shade.
type MemorySink struct {
	mu    sync.Mutex
	now   func() time.Time
	byKey map[string]*Record
	order []string
	total int
}

func NewMemorySink() *MemorySink {
	return &MemorySink{now: time.Now, byKey: make(map[string]*Record)}
}

func (m *MemorySink) Present(d Descriptor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total++
	now := m.now()
	if r, ok := m.byKey[d.DedupKey]; ok {
		r.Descriptor = d
		r.UpdatedAt = now
		r.Updates++
		return
	}
	m.byKey[d.DedupKey] = &Record{Descriptor: d, PresentedAt: now, UpdatedAt: now}
	m.order = append(m.order, d.DedupKey)
}

func (m *MemorySink) Dismiss(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byKey[key]; !ok {
		return
	}
	delete(m.byKey, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Active returns the shown notifications in first-presented order.
func (m *MemorySink) Active() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, *m.byKey[k])
	}
	return out
}

// Total returns how many Present calls were received.
func (m *MemorySink) Total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}
