package service

import (
	"eodd/internal/broadcast"
	"eodd/internal/lifecycle"
	"eodd/internal/notify"
	"eodd/internal/scheduler"
)

// Start moves a Stopped worker to Started. It is a no-op otherwise.
func (s *Service) Start() (lifecycle.Mode, error) { return s.apply(lifecycle.Start, nil) }

// Bind subscribes o and moves the worker to Bound, starting it if needed.
// A Foreground worker stays Foreground.
func (s *Service) Bind(o broadcast.Observer) (lifecycle.Mode, error) {
	return s.apply(lifecycle.Bind, o)
}

// Unbind removes o. The worker drops back to Started once the last
// observer leaves a Bound worker. Unbinding an unknown observer is a no-op.
func (s *Service) Unbind(o broadcast.Observer) (lifecycle.Mode, error) {
	return s.apply(lifecycle.Unbind, o)
}

// Promote moves a running worker to Foreground and attaches the ongoing
// notification. Promoting a Stopped worker is rejected.
func (s *Service) Promote() (lifecycle.Mode, error) { return s.apply(lifecycle.Promote, nil) }

// Stop halts everything: schedules are cancelled (waiting for in-flight
// ticks), queued and running tasks are cancelled, observers are dropped
// and the ongoing notification is dismissed. Stop is idempotent.
func (s *Service) Stop() (lifecycle.Mode, error) { return s.apply(lifecycle.Stop, nil) }

func (s *Service) apply(req lifecycle.Request, o broadcast.Observer) (lifecycle.Mode, error) {
	s.transMu.Lock()
	defer s.transMu.Unlock()

	from := s.Mode()
	if s.isClosed() && req != lifecycle.Stop {
		return from, ErrClosed
	}
	switch req {
	case lifecycle.Bind:
		if o == nil {
			return from, ErrNilObserver
		}
		s.bcast.Subscribe(o)
	case lifecycle.Unbind:
		if o == nil || !s.bcast.Unsubscribe(o) {
			transitionsTotal.WithLabelValues(string(req), string(from), string(from)).Inc()
			return from, nil
		}
	}

	to, err := lifecycle.Next(from, req, s.bcast.Len())
	if err != nil {
		transitionsTotal.WithLabelValues(string(req), string(from), "rejected").Inc()
		s.log.Warn().Str("request", string(req)).Str("mode", string(from)).Msg("transition rejected")
		return from, err
	}

	if to == lifecycle.Stopped {
		s.haltMode()
		s.halt()
	} else {
		s.setMode(to)
		if !from.Running() {
			s.launch()
		}
		if to == lifecycle.Foreground && from != lifecycle.Foreground {
			s.showOngoing()
		}
	}

	transitionsTotal.WithLabelValues(string(req), string(from), string(to)).Inc()
	if from != to {
		s.log.Info().
			Str("request", string(req)).
			Str("from", string(from)).
			Str("to", string(to)).
			Int("observers", s.bcast.Len()).
			Msg("lifecycle transition")
	}
	return to, nil
}

func (s *Service) setMode(m lifecycle.Mode) {
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
	setModeGauge(m)
}

// haltMode enters Stopped and retires pending notifications in one step
// with respect to emit.
func (s *Service) haltMode() {
	s.mu.Lock()
	s.mode = lifecycle.Stopped
	s.notes.Discard()
	s.mu.Unlock()
	setModeGauge(lifecycle.Stopped)
}

func (s *Service) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// launch arms the bug schedule and, when configured, the weather schedule.
func (s *Service) launch() {
	bug, err := s.bugs.Schedule(s.cfg.TickInterval, s.onBugTick)
	if err != nil {
		s.log.Error().Err(err).Dur("interval", s.cfg.TickInterval).Msg("bug schedule")
	}
	wx := s.weatherSchedule()
	s.mu.Lock()
	s.bugHandle = bug
	s.weatherHandle = wx
	s.mu.Unlock()
}

func (s *Service) weatherSchedule() *scheduler.Handle {
	if s.cfg.WeatherInterval <= 0 {
		return nil
	}
	h, err := s.forecasts.Schedule(s.cfg.WeatherInterval, s.onWeatherTick)
	if err != nil {
		s.log.Error().Err(err).Dur("interval", s.cfg.WeatherInterval).Msg("weather schedule")
		return nil
	}
	return h
}

// halt runs the Stop side effects in order. Cancelling a schedule waits for
// its in-flight tick, so nothing is published after halt returns. Sinks
// run on the renderer goroutine, which halt never waits for, so a sink may
// call Stop itself.
func (s *Service) halt() {
	s.mu.Lock()
	bug, wx := s.bugHandle, s.weatherHandle
	s.bugHandle, s.weatherHandle = nil, nil
	ongoing := s.ongoing
	s.ongoing = false
	s.mu.Unlock()

	if bug != nil {
		s.bugs.Cancel(bug)
	}
	if wx != nil {
		s.forecasts.Cancel(wx)
	}
	cancelled := s.queue.CancelAll()
	dropped := s.bcast.Clear()
	if ongoing {
		s.notes.Dismiss(notify.KeyOngoing)
	}
	if cancelled > 0 || dropped > 0 {
		s.log.Debug().Int("tasks_cancelled", cancelled).Int("observers_dropped", dropped).Msg("worker halted")
	}
}

func (s *Service) showOngoing() {
	s.mu.Lock()
	n := s.bugCount
	s.ongoing = true
	s.mu.Unlock()
	s.notes.Present(notify.Ongoing(n))
}
