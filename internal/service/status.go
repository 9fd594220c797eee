package service

import (
	"context"
	"time"

	"eodd/internal/scheduler"
	"eodd/internal/taskqueue"
	"eodd/pkg/types"
)

// Snapshot reads the observable state.
func (s *Service) Snapshot() types.Snapshot {
	s.mu.RLock()
	snap := types.Snapshot{
		Mode:             string(s.mode),
		BugCount:         s.bugCount,
		WeatherText:      s.weatherOut.Value,
		WeatherFreshness: string(s.weatherOut.Freshness),
		LoginStatus:      s.login,
		Ticks:            s.ticks,
	}
	s.mu.RUnlock()
	snap.Observers = s.bcast.Len()
	return snap
}

// Status extends Snapshot with queue, schedule and tuning details.
func (s *Service) Status() types.StatusResponse {
	snap := s.Snapshot()
	qs := s.queue.Stats()
	pol := s.gate.Policy()
	now := s.clock.Now()

	s.mu.RLock()
	prob := s.spawnProb
	scheds := []types.ScheduleStatus{
		scheduleStatus(s.bugs.Name(), s.bugHandle),
		scheduleStatus(s.forecasts.Name(), s.weatherHandle),
		scheduleStatus(s.reminders.Name(), s.reminderHandle),
	}
	s.mu.RUnlock()

	return types.StatusResponse{
		Snapshot: snap,
		Queue: types.QueueStatus{
			Capacity:  qs.Capacity,
			Workers:   qs.Workers,
			Pending:   qs.Pending,
			Running:   qs.Running,
			Succeeded: qs.Succeeded,
			Failed:    qs.Failed,
			Cancelled: qs.Cancelled,
		},
		Schedules:        scheds,
		SpawnProbability: prob,
		NotifyCooldownMS: pol.Cooldown.Milliseconds(),
		NotifyEvery:      pol.Every,
		UptimeSeconds:    int64(now.Sub(s.startedAt) / time.Second),
		ServerTimeUnix:   now.Unix(),
	}
}

func scheduleStatus(name string, h *scheduler.Handle) types.ScheduleStatus {
	st := types.ScheduleStatus{Name: name}
	if h == nil || h.Cancelled() {
		return st
	}
	st.Active = true
	st.Fires = h.Fires()
	if next := h.NextRun(); !next.IsZero() {
		st.NextRunUnix = next.Unix()
	}
	return st
}

// Task returns the state of a queued task.
func (s *Service) Task(id string) (types.TaskStatus, bool) {
	info, ok := s.queue.Get(id)
	if !ok {
		return types.TaskStatus{}, false
	}
	ts := types.TaskStatus{
		ID:              info.ID,
		Status:          string(info.Status),
		SubmittedAtUnix: info.SubmittedAt.Unix(),
	}
	if info.Result != nil {
		ts.Value = info.Result.Value
		ts.Error = info.Result.Err
	}
	return ts, true
}

// CancelTask cancels a queued or running task.
func (s *Service) CancelTask(id string) error { return s.queue.Cancel(id) }

// AwaitTask blocks until the task resolves or ctx is done.
func (s *Service) AwaitTask(ctx context.Context, id string) (taskqueue.Result, error) {
	return s.queue.Await(ctx, id)
}
