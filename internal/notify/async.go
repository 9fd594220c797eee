package notify

import (
	"sync"

	"github.com/rs/zerolog"
)

// Async renders notifications on its own goroutine in the order they were
// offered. Callers never run sink code, so a sink may call back into the
// worker, Stop included.
//
// Offers carry the generation they were evaluated in. Discard starts a new
// generation: queued presentations are dropped and late offers from the old
// generation are ignored. Dismissals are always delivered.
type Async struct {
	sink Sink
	log  zerolog.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	q      []op
	epoch  uint64
	busy   bool
	closed bool
	done   chan struct{}
}

type op struct {
	epoch   uint64
	present *Descriptor
	dismiss string
}

// NewAsync starts a renderer in front of sink. Close releases it.
func NewAsync(sink Sink, log zerolog.Logger) *Async {
	if sink == nil {
		sink = NopSink{}
	}
	a := &Async{
		sink: sink,
		log:  log.With().Str("component", "notify").Logger(),
		done: make(chan struct{}),
	}
	a.cond = sync.NewCond(&a.mu)
	go a.run()
	return a
}

// Epoch returns the current generation.
func (a *Async) Epoch() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.epoch
}

// Present queues d in the current generation.
func (a *Async) Present(d Descriptor) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pushLocked(a.epoch, &d)
}

// Offer queues d unless epoch is no longer current. It reports whether d
// was queued.
func (a *Async) Offer(epoch uint64, d Descriptor) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if epoch != a.epoch {
		decisionsTotal.WithLabelValues("discarded").Inc()
		return false
	}
	return a.pushLocked(epoch, &d)
}

func (a *Async) pushLocked(epoch uint64, d *Descriptor) bool {
	if a.closed {
		return false
	}
	a.q = append(a.q, op{epoch: epoch, present: d})
	a.cond.Broadcast()
	return true
}

// Dismiss queues the removal of key.
func (a *Async) Dismiss(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.q = append(a.q, op{epoch: a.epoch, dismiss: key})
	a.cond.Broadcast()
}

// Discard starts a new generation and drops the queued presentations. A
// render already underway is not interrupted. It returns how many were
// dropped.
func (a *Async) Discard() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.epoch++
	kept := a.q[:0]
	dropped := 0
	for _, o := range a.q {
		if o.present != nil {
			dropped++
			continue
		}
		kept = append(kept, o)
	}
	for i := len(kept); i < len(a.q); i++ {
		a.q[i] = op{}
	}
	a.q = kept
	if dropped > 0 {
		decisionsTotal.WithLabelValues("discarded").Add(float64(dropped))
	}
	return dropped
}

// Flush blocks until everything queued before the call has been rendered.
// It must not be called from a sink.
func (a *Async) Flush() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for len(a.q) > 0 || a.busy {
		a.cond.Wait()
	}
}

// Close renders what is still queued, then stops the goroutine. Later
// calls are dropped. It must not be called from a sink.
func (a *Async) Close() {
	a.mu.Lock()
	a.closed = true
	a.cond.Broadcast()
	a.mu.Unlock()
	<-a.done
}

func (a *Async) run() {
	defer close(a.done)
	a.mu.Lock()
	defer a.mu.Unlock()
	for {
		for len(a.q) == 0 && !a.closed {
			a.cond.Broadcast()
			a.cond.Wait()
		}
		if len(a.q) == 0 {
			a.cond.Broadcast()
			return
		}
		o := a.q[0]
		a.q[0] = op{}
		a.q = a.q[1:]
		if o.present != nil && o.epoch != a.epoch {
			continue
		}
		a.busy = true
		a.mu.Unlock()
		a.render(o)
		a.mu.Lock()
		a.busy = false
	}
}

func (a *Async) render(o op) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error().Interface("panic", r).Msg("sink panicked")
		}
	}()
	if o.present != nil {
		a.sink.Present(*o.present)
		return
	}
	a.sink.Dismiss(o.dismiss)
}
