// Package broadcast fans state events out to observers. Each observer has
// its own mailbox and delivery goroutine, so a slow observer never holds up
// the publisher or its peers, and every observer sees events in publication
// order. Nothing is buffered for observers that subscribe later.
package broadcast

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"eodd/internal/events"
)

// Observer receives events. Implementations must be comparable (pointer
// receivers are typical) since the observer value is its registration key.
// The broadcaster never outlives the caller's registration: the caller
// unsubscribes explicitly when it is done.
type Observer interface {
	Observe(events.Event)
}

// Clock stamps events; it is satisfied by scheduler.Clock.
type Clock interface {
	Now() time.Time
}

// Broadcaster is a live publish/subscribe channel.
type Broadcaster struct {
	mu    sync.Mutex
	subs  map[Observer]*mailbox
	seq   uint64
	clock Clock
	log   zerolog.Logger
}

// New returns an empty Broadcaster. clock may be nil for wall time.
func New(clock Clock, log zerolog.Logger) *Broadcaster {
	if clock == nil {
		clock = wallClock{}
	}
	return &Broadcaster{
		subs:  make(map[Observer]*mailbox),
		clock: clock,
		log:   log.With().Str("component", "broadcast").Logger(),
	}
}

// Subscribe registers o. It reports false when o was already registered.
func (b *Broadcaster) Subscribe(o Observer) bool {
	if o == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[o]; ok {
		return false
	}
	mb := newMailbox(o, b.log)
	b.subs[o] = mb
	go mb.run()
	return true
}

// Unsubscribe removes o. Once it returns no new delivery to o starts; a
// delivery already underway may finish. It reports false if o was unknown.
func (b *Broadcaster) Unsubscribe(o Observer) bool {
	if o == nil {
		return false
	}
	b.mu.Lock()
	mb, ok := b.subs[o]
	delete(b.subs, o)
	b.mu.Unlock()
	if ok {
		mb.close()
	}
	return ok
}

// Clear removes every observer.
func (b *Broadcaster) Clear() int {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[Observer]*mailbox)
	b.mu.Unlock()
	for _, mb := range subs {
		mb.close()
	}
	return len(subs)
}

// Len returns the number of registered observers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Publish stamps e with the next sequence number and time, hands it to
// every registered observer and returns the stamped event. Publishing with
// no observers is a no-op apart from the stamp.
func (b *Broadcaster) Publish(e events.Event) events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	e.Seq = b.seq
	if e.Time.IsZero() {
		e.Time = b.clock.Now()
	}
	for _, mb := range b.subs {
		mb.push(e)
	}
	publishedTotal.WithLabelValues(string(e.Kind)).Inc()
	return e
}

type mailbox struct {
	obs  Observer
	log  zerolog.Logger
	mu   sync.Mutex
	cond *sync.Cond
	q    []events.Event
	shut bool
}

func newMailbox(o Observer, log zerolog.Logger) *mailbox {
	mb := &mailbox{obs: o, log: log}
	mb.cond = sync.NewCond(&mb.mu)
	return mb
}

func (mb *mailbox) push(e events.Event) {
	mb.mu.Lock()
	if !mb.shut {
		mb.q = append(mb.q, e)
		mb.cond.Signal()
	}
	mb.mu.Unlock()
}

func (mb *mailbox) close() {
	mb.mu.Lock()
	mb.shut = true
	mb.q = nil
	mb.cond.Signal()
	mb.mu.Unlock()
}

func (mb *mailbox) run() {
	for {
		mb.mu.Lock()
		for len(mb.q) == 0 && !mb.shut {
			mb.cond.Wait()
		}
		if mb.shut {
			mb.mu.Unlock()
			return
		}
		e := mb.q[0]
		mb.q = mb.q[1:]
		mb.mu.Unlock()
		mb.deliver(e)
	}
}

func (mb *mailbox) deliver(e events.Event) {
	defer func() {
		if r := recover(); r != nil {
			mb.log.Error().Interface("panic", r).Str("kind", string(e.Kind)).Msg("observer panicked")
		}
	}()
	mb.obs.Observe(e)
}
