// Package service hosts the long-lived worker: the lifecycle state machine
// and everything it drives. It is split by concern:
//
//   - service.go: Service type, constructor, simple getters.
//   - config.go: Config, Tunables and package defaults.
//   - transitions.go: Start/Bind/Unbind/Promote/Stop and their side effects.
//   - ticks.go: bug-spawn ticks, the boot reminder and weather refreshes.
//   - login.go: the background username job run on the task queue.
//   - status.go: Snapshot/Status reporting.
//   - errors.go: error values and helpers.
//
// Each collaborator keeps its own lock: the mode and counters live behind
// Service.mu, observers behind the broadcaster, tasks behind the queue and
// the weather cache behind the feed. Transitions are serialized by a
// separate transition lock so a slow side effect never blocks readers.
package service
