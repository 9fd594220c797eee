package service

import (
	"context"
	"fmt"

	"eodd/internal/events"
	"eodd/internal/feed"
	"eodd/internal/scheduler"
)

// onBugTick counts the tick and, with the configured probability, spawns
// a bug and publishes BugSpawned.
func (s *Service) onBugTick(context.Context) {
	s.mu.Lock()
	s.ticks++
	if !s.mode.Running() || s.rand() >= s.spawnProb {
		s.mu.Unlock()
		return
	}
	s.bugCount++
	n := s.bugCount
	s.mu.Unlock()

	bugsSpawnedTotal.Inc()
	s.emit(events.NewBugSpawned(n))
}

// emit publishes e to every observer and offers it to the notification
// gate. The mode and the renderer generation are read together, so an
// offer evaluated before Stop is dropped by the renderer after it.
func (s *Service) emit(e events.Event) events.Event {
	s.mu.RLock()
	e = s.bcast.Publish(e)
	d, ok := s.gate.Evaluate(e, s.mode, s.clock.Now())
	epoch := s.notes.Epoch()
	s.mu.RUnlock()
	s.log.Debug().Str("kind", string(e.Kind)).Uint64("seq", e.Seq).Fields(e.Fields()).Bool("notify", ok).Msg("event published")
	if ok {
		s.notes.Offer(epoch, d)
	}
	return e
}

// OnBootCompleted arms the periodic charge reminder. It survives Stop and
// is only cancelled by Close. Calling it again is a no-op.
func (s *Service) OnBootCompleted() error {
	var (
		sched scheduler.Schedule
		err   error
	)
	if s.cfg.ReminderCron != "" {
		sched, err = scheduler.ParseSchedule(s.cfg.ReminderCron)
		if err != nil {
			return fmt.Errorf("reminder schedule: %w", err)
		}
	} else {
		sched = scheduler.Every(s.cfg.ReminderInterval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.reminderHandle != nil {
		return nil
	}
	h, err := s.reminders.ScheduleSpec(sched, s.onReminder)
	if err != nil {
		return fmt.Errorf("reminder schedule: %w", err)
	}
	s.reminderHandle = h
	s.log.Info().Time("next_run", h.NextRun()).Msg("charge reminder armed")
	return nil
}

// OnApplicationExit is the host-exit signal; it stops the worker.
func (s *Service) OnApplicationExit() (bool, error) {
	was := s.Mode().Running()
	_, err := s.Stop()
	return was, err
}

func (s *Service) onReminder(context.Context) {
	remindersTotal.Inc()
	s.emit(events.NewReminderDue())
}

func (s *Service) onWeatherTick(ctx context.Context) { s.RefreshWeather(ctx) }

// RefreshWeather pulls the weather feed under the configured timeout,
// records the outcome and publishes WeatherUpdated. It never fails: a
// degraded fetch yields the cached or fallback value.
func (s *Service) RefreshWeather(ctx context.Context) feed.Outcome {
	out := s.weather.Fetch(ctx, s.cfg.WeatherTimeout)
	s.mu.Lock()
	s.weatherOut = out
	s.mu.Unlock()

	ev := s.log.Debug()
	if out.Err != nil {
		ev = s.log.Warn().Err(out.Err)
	}
	ev.Str("freshness", string(out.Freshness)).Str("text", out.Value).Msg("weather refreshed")

	s.emit(events.NewWeatherUpdated(out.Value, string(out.Freshness)))
	return out
}
