package broadcast

import (
	"sync"
	"time"

	"eodd/internal/events"
)

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// ChanObserver exposes delivered events on a channel. Observe blocks while
// the channel is full, which only stalls this observer's own mailbox.
type ChanObserver struct {
	c    chan events.Event
	done chan struct{}
	once sync.Once
}

// NewChanObserver returns an observer with the given channel buffer.
func NewChanObserver(buffer int) *ChanObserver {
	if buffer < 0 {
		buffer = 0
	}
	return &ChanObserver{c: make(chan events.Event, buffer), done: make(chan struct{})}
}

func (o *ChanObserver) Observe(e events.Event) {
	select {
	case o.c <- e:
	case <-o.done:
	}
}

// C returns the delivery channel.
func (o *ChanObserver) C() <-chan events.Event { return o.c }

// Close releases a delivery blocked on a full channel. Call it after
// unsubscribing.
func (o *ChanObserver) Close() {
	o.once.Do(func() { close(o.done) })
}

// FuncObserver adapts a function. Use a pointer so it can be registered.
type FuncObserver struct {
	Fn func(events.Event)
}

func (f *FuncObserver) Observe(e events.Event) { f.Fn(e) }
