package taskqueue

import "errors"

var (
	// ErrQueueClosed is returned by Submit after Close.
	ErrQueueClosed = errors.New("taskqueue: closed")
	// ErrTaskNotFound is returned for unknown or pruned task ids.
	ErrTaskNotFound = errors.New("taskqueue: task not found")
)

// queueFullError signals that the queue is at capacity. Callers may retry
// later or drop the work.
type queueFullError struct{}

func (e queueFullError) Error() string { return "taskqueue: queue full" }

// ErrQueueFull is the value returned by Submit at capacity.
var ErrQueueFull error = queueFullError{}

// IsQueueFull reports whether err indicates back-pressure.
func IsQueueFull(err error) bool {
	var qf queueFullError
	return errors.As(err, &qf)
}
