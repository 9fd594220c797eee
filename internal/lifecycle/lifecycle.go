// Package lifecycle holds the worker's execution modes and the transition
// table between them. The table is a pure function so it can be checked in
// isolation from the goroutines that act on it.
package lifecycle

// Mode is the execution mode of the long-lived worker.
type Mode string

const (
	Stopped    Mode = "stopped"
	Started    Mode = "started"
	Bound      Mode = "bound"
	Foreground Mode = "foreground"
)

// Running reports whether the worker is doing work in this mode.
// Foreground implies started, so every mode but Stopped is running.
func (m Mode) Running() bool { return m != Stopped && m != "" }

// Request is a lifecycle request issued by a caller.
type Request string

const (
	Start   Request = "start"
	Bind    Request = "bind"
	Unbind  Request = "unbind"
	Promote Request = "promote"
	Stop    Request = "stop"
)

// Requests lists every request in a stable order.
var Requests = []Request{Start, Bind, Unbind, Promote, Stop}

// Next returns the mode that follows from applying req in mode from.
// observers is the number of registered observers after req has taken
// effect on the observer set (so for Unbind it excludes the leaving one).
//
// Next is total: every (mode, request) pair has an answer. Requests that
// cannot apply return the unchanged mode and an InvalidTransitionError.
func Next(from Mode, req Request, observers int) (Mode, error) {
	if from == "" {
		from = Stopped
	}
	switch req {
	case Start:
		if from == Stopped {
			return Started, nil
		}
		return from, nil
	case Bind:
		if from == Foreground {
			return Foreground, nil
		}
		return Bound, nil
	case Unbind:
		if from == Bound && observers <= 0 {
			return Started, nil
		}
		return from, nil
	case Promote:
		if from == Stopped {
			return from, InvalidTransitionError{From: from, Request: req}
		}
		return Foreground, nil
	case Stop:
		return Stopped, nil
	default:
		return from, InvalidTransitionError{From: from, Request: req}
	}
}
