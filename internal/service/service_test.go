package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eodd/internal/broadcast"
	"eodd/internal/events"
	"eodd/internal/feed"
	"eodd/internal/kv"
	"eodd/internal/lifecycle"
	"eodd/internal/notify"
	"eodd/internal/scheduler"
	"eodd/internal/taskqueue"
)

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

const tick = 2 * time.Second

type harness struct {
	svc   *Service
	clock *scheduler.FakeClock
	sink  *notify.MemorySink
	store *kv.Memory
}

func newHarness(t *testing.T, mut func(*Config)) *harness {
	t.Helper()
	h := &harness{
		clock: scheduler.NewFakeClock(t0),
		sink:  notify.NewMemorySink(),
		store: kv.NewMemory(),
	}
	cfg := Config{
		TickInterval:     tick,
		SpawnProbability: 1,
		NotifyCooldown:   -1,
		Store:            h.store,
		Sink:             h.sink,
		Clock:            h.clock,
		Rand:             func() float64 { return 0 },
		Logger:           zerolog.Nop(),
	}
	if mut != nil {
		mut(&cfg)
	}
	h.svc = New(cfg)
	t.Cleanup(h.svc.Close)
	return h
}

// tick advances one interval and waits for the bug schedule to re-arm.
func (h *harness) tick(armed int) {
	h.clock.Advance(tick)
	h.clock.BlockUntil(armed)
}

// flush waits for the notification renderer to go idle.
func (h *harness) flush() { h.svc.notes.Flush() }

func recv(t *testing.T, o *broadcast.ChanObserver) events.Event {
	t.Helper()
	select {
	case e := <-o.C():
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return events.Event{}
	}
}

func assertQuiet(t *testing.T, o *broadcast.ChanObserver) {
	t.Helper()
	select {
	case e := <-o.C():
		t.Fatalf("unexpected event %+v", e)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestNew_StartsStopped(t *testing.T) {
	h := newHarness(t, nil)
	snap := h.svc.Snapshot()
	assert.Equal(t, "stopped", snap.Mode)
	assert.Zero(t, snap.BugCount)
	assert.Zero(t, snap.Observers)
	assert.False(t, h.svc.Ready())
	assert.Zero(t, h.clock.Pending(), "no schedule before start")
}

func TestBind_ThreeTicksThreeOrderedEvents(t *testing.T) {
	h := newHarness(t, nil)
	o := broadcast.NewChanObserver(8)
	mode, err := h.svc.Bind(o)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Bound, mode)
	h.clock.BlockUntil(1)

	for i := 0; i < 3; i++ {
		h.tick(1)
	}
	var last uint64
	for i := 1; i <= 3; i++ {
		e := recv(t, o)
		assert.Equal(t, events.BugSpawned, e.Kind)
		assert.Equal(t, i, e.Count)
		assert.Greater(t, e.Seq, last)
		last = e.Seq
	}
	assert.Equal(t, 3, h.svc.Snapshot().BugCount)
	assert.Equal(t, uint64(3), h.svc.Snapshot().Ticks)
}

func TestSpawnProbability_MissDoesNotSpawn(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.Rand = func() float64 { return 0.99 }; c.SpawnProbability = 0.5 })
	_, err := h.svc.Start()
	require.NoError(t, err)
	h.clock.BlockUntil(1)
	h.tick(1)
	h.tick(1)
	snap := h.svc.Snapshot()
	assert.Equal(t, uint64(2), snap.Ticks)
	assert.Zero(t, snap.BugCount)
}

func TestUnbindRebind_PreservesCount(t *testing.T) {
	h := newHarness(t, nil)
	o := broadcast.NewChanObserver(8)
	_, err := h.svc.Bind(o)
	require.NoError(t, err)
	h.clock.BlockUntil(1)
	h.tick(1)
	recv(t, o)

	mode, err := h.svc.Unbind(o)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Started, mode)
	h.tick(1)
	assertQuiet(t, o)

	o2 := broadcast.NewChanObserver(8)
	mode, err = h.svc.Bind(o2)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Bound, mode)
	h.tick(1)
	assert.Equal(t, 3, recv(t, o2).Count, "ticks continue across rebind")
	assert.Equal(t, 1, h.clock.Pending(), "rebinding must not add a schedule")
}

func TestUnbind_UnknownObserverIsNoop(t *testing.T) {
	h := newHarness(t, nil)
	o := broadcast.NewChanObserver(1)
	_, err := h.svc.Bind(o)
	require.NoError(t, err)
	mode, err := h.svc.Unbind(broadcast.NewChanObserver(1))
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Bound, mode)
	assert.Equal(t, 1, h.svc.Observers())
}

func TestPromote_RejectedWhileStopped(t *testing.T) {
	h := newHarness(t, nil)
	mode, err := h.svc.Promote()
	require.Error(t, err)
	assert.True(t, IsInvalidTransition(err))
	assert.Equal(t, lifecycle.Stopped, mode)
	assert.Empty(t, h.sink.Active())
}

func TestForeground_OngoingNotification(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.svc.Start()
	require.NoError(t, err)
	h.clock.BlockUntil(1)
	mode, err := h.svc.Promote()
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Foreground, mode)

	h.tick(1)
	h.tick(1)
	h.flush()
	active := h.sink.Active()
	require.Len(t, active, 1)
	assert.Equal(t, notify.KeyOngoing, active[0].DedupKey)
	assert.Equal(t, 2, active[0].Updates, "ongoing notification is updated in place")

	mode, err = h.svc.Stop()
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Stopped, mode)
	h.flush()
	assert.Empty(t, h.sink.Active(), "stop dismisses the ongoing notification")
}

func TestStarted_BugNotificationsUseCooldown(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.NotifyCooldown = time.Minute })
	_, err := h.svc.Start()
	require.NoError(t, err)
	h.clock.BlockUntil(1)
	for i := 0; i < 5; i++ {
		h.tick(1)
	}
	h.flush()
	assert.Equal(t, 1, h.sink.Total(), "repeats inside the cool-down are suppressed")
}

func TestStop_HaltsEverything(t *testing.T) {
	h := newHarness(t, nil)
	o := broadcast.NewChanObserver(8)
	_, err := h.svc.Bind(o)
	require.NoError(t, err)
	h.clock.BlockUntil(1)

	mode, err := h.svc.Stop()
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Stopped, mode)
	assert.Zero(t, h.svc.Observers())
	assert.Zero(t, h.clock.Pending(), "bug schedule cancelled")

	h.clock.Advance(10 * tick)
	assertQuiet(t, o)
	assert.Zero(t, h.svc.Snapshot().BugCount)
	h.flush()
	assert.Zero(t, h.sink.Total())

	// idempotent
	mode, err = h.svc.Stop()
	require.NoError(t, err)
	assert.Equal(t, lifecycle.Stopped, mode)
}

func TestLogin_SubmitWhileStoppedThenStop(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.LoginDelay = time.Hour })
	id, err := h.svc.Login("ash")
	require.NoError(t, err)
	assert.Equal(t, LoginPending, h.svc.Snapshot().LoginStatus.State)

	_, err = h.svc.Stop()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	r, err := h.svc.AwaitTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, taskqueue.StatusCancelled, r.Status)

	_, ok := h.store.Get(ctx, userKeyPrefix+"ash")
	assert.False(t, ok, "cancelled login must not store the name")
	assert.Eventually(t, func() bool {
		return h.svc.Snapshot().LoginStatus.State == LoginCancelled
	}, time.Second, 5*time.Millisecond)
}

func TestLogin_StoresThenReportsExisting(t *testing.T) {
	h := newHarness(t, nil)
	o := broadcast.NewChanObserver(8)
	_, err := h.svc.Bind(o)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	id, err := h.svc.Login("  ash ")
	require.NoError(t, err)
	r, err := h.svc.AwaitTask(ctx, id)
	require.NoError(t, err)
	require.Equal(t, taskqueue.StatusSucceeded, r.Status)
	out := r.Value.(LoginOutcome)
	assert.True(t, out.Success)
	assert.Len(t, out.Digest, 64)

	e := recv(t, o)
	assert.Equal(t, events.LoginResult, e.Kind)
	assert.True(t, e.Success)
	assert.Equal(t, "ash", e.Username)

	stored, ok := h.store.Get(ctx, userKeyPrefix+"ash")
	require.True(t, ok)
	assert.Equal(t, out.Digest, stored)

	id, err = h.svc.Login("ash")
	require.NoError(t, err)
	_, err = h.svc.AwaitTask(ctx, id)
	require.NoError(t, err)
	e = recv(t, o)
	assert.False(t, e.Success)
	assert.Eventually(t, func() bool {
		return h.svc.Snapshot().LoginStatus.State == LoginExists
	}, time.Second, 5*time.Millisecond)

	ts, ok := h.svc.Task(id)
	require.True(t, ok)
	assert.Equal(t, "succeeded", ts.Status)
}

func TestLogin_EmptyUsername(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.svc.Login("   ")
	assert.ErrorIs(t, err, ErrEmptyUsername)
}

func TestCancelTask_Unknown(t *testing.T) {
	h := newHarness(t, nil)
	assert.ErrorIs(t, h.svc.CancelTask("nope"), taskqueue.ErrTaskNotFound)
	_, ok := h.svc.Task("nope")
	assert.False(t, ok)
}

func TestReminder_SuppressedWhileStopped(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.ReminderInterval = time.Hour })
	require.NoError(t, h.svc.OnBootCompleted())
	require.NoError(t, h.svc.OnBootCompleted(), "second boot signal is a no-op")
	h.clock.BlockUntil(1)
	assert.Equal(t, 1, h.clock.Pending())

	h.clock.Advance(time.Hour)
	h.clock.BlockUntil(1)
	h.flush()
	assert.Zero(t, h.sink.Total(), "stopped worker never notifies")

	_, err := h.svc.Start()
	require.NoError(t, err)
	h.clock.BlockUntil(2)
	h.clock.Advance(time.Hour)
	h.clock.BlockUntil(2)
	assert.Eventually(t, func() bool {
		for _, r := range h.sink.Active() {
			if r.DedupKey == notify.KeyReminder {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestReminder_BadCron(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.ReminderCron = "not a cron" })
	assert.Error(t, h.svc.OnBootCompleted())
}

func TestOnApplicationExit(t *testing.T) {
	h := newHarness(t, nil)
	was, err := h.svc.OnApplicationExit()
	require.NoError(t, err)
	assert.False(t, was)

	_, err = h.svc.Start()
	require.NoError(t, err)
	was, err = h.svc.OnApplicationExit()
	require.NoError(t, err)
	assert.True(t, was)
	assert.Equal(t, lifecycle.Stopped, h.svc.Mode())
}

func TestRefreshWeather_PublishesOutcome(t *testing.T) {
	wx := feed.New(feed.Config{
		URL: "http://weather.invalid",
		Requester: feed.RequesterFunc(func(context.Context, string, time.Duration) ([]byte, error) {
			return []byte(`{"name":"Singapore","weather":[{"description":"light rain"}],"main":{"temp":27.3}}`), nil
		}),
	})
	h := newHarness(t, func(c *Config) { c.Weather = wx })
	o := broadcast.NewChanObserver(4)
	_, err := h.svc.Bind(o)
	require.NoError(t, err)

	out := h.svc.RefreshWeather(context.Background())
	assert.Equal(t, feed.Fresh, out.Freshness)
	e := recv(t, o)
	assert.Equal(t, events.WeatherUpdated, e.Kind)
	assert.Equal(t, "fresh", e.Freshness)
	assert.Equal(t, out.Value, e.Text)

	snap := h.svc.Snapshot()
	assert.Equal(t, out.Value, snap.WeatherText)
	assert.Equal(t, "fresh", snap.WeatherFreshness)
}

func TestRefreshWeather_DefaultFeedFallsBack(t *testing.T) {
	h := newHarness(t, nil)
	out := h.svc.RefreshWeather(context.Background())
	assert.Equal(t, feed.Fallback, out.Freshness)
	assert.Equal(t, feed.DefaultFallback, out.Value)
}

func TestStatus_ReportsSchedulesAndTunables(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.svc.Start()
	require.NoError(t, err)
	h.clock.BlockUntil(1)
	h.tick(1)

	h.svc.UpdateTunables(Tunables{SpawnProbability: 0.25, NotifyEvery: 3, NotifyCooldown: time.Minute})
	st := h.svc.Status()
	assert.Equal(t, "started", st.Snapshot.Mode)
	assert.Equal(t, 0.25, st.SpawnProbability)
	assert.Equal(t, 3, st.NotifyEvery)
	assert.Equal(t, int64(60000), st.NotifyCooldownMS)
	require.Len(t, st.Schedules, 3)
	assert.Equal(t, "bugs", st.Schedules[0].Name)
	assert.True(t, st.Schedules[0].Active)
	assert.Equal(t, uint64(1), st.Schedules[0].Fires)
	assert.False(t, st.Schedules[1].Active, "weather refresh disabled")
	assert.Equal(t, int64(2), st.UptimeSeconds)
}

func TestClose_RejectsFurtherWork(t *testing.T) {
	h := newHarness(t, nil)
	h.svc.Close()
	_, err := h.svc.Start()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = h.svc.Login("ash")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, h.svc.OnBootCompleted(), ErrClosed)
}

func TestBind_BurstAdvanceYieldsEveryTick(t *testing.T) {
	h := newHarness(t, nil)
	o := broadcast.NewChanObserver(8)
	_, err := h.svc.Bind(o)
	require.NoError(t, err)
	h.clock.BlockUntil(1)

	h.clock.Advance(3 * tick)
	h.clock.BlockUntil(1)
	for want := 1; want <= 3; want++ {
		e := recv(t, o)
		assert.Equal(t, events.BugSpawned, e.Kind)
		assert.Equal(t, want, e.Count)
	}
	assertQuiet(t, o)
}

func TestBind_NilObserverRejected(t *testing.T) {
	h := newHarness(t, nil)
	mode, err := h.svc.Bind(nil)
	assert.ErrorIs(t, err, ErrNilObserver)
	assert.Equal(t, lifecycle.Stopped, mode)
	assert.Equal(t, lifecycle.Stopped, h.svc.Mode())
	assert.Zero(t, h.clock.Pending(), "nothing was launched")
}

func TestLogin_StopCancelsQueuedBeforeItRuns(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.LoginDelay = time.Hour
		c.QueueWorkers = 1
	})
	running, err := h.svc.Login("ash")
	require.NoError(t, err)
	h.clock.BlockUntil(1) // the worker is inside the login delay
	queued, err := h.svc.Login("misty")
	require.NoError(t, err)
	ts, ok := h.svc.Task(queued)
	require.True(t, ok)
	require.Equal(t, "pending", ts.Status)

	_, err = h.svc.Stop()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, id := range []string{queued, running} {
		r, err := h.svc.AwaitTask(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, taskqueue.StatusCancelled, r.Status, id)
	}
	for _, name := range []string{"ash", "misty"} {
		_, ok := h.store.Get(ctx, userKeyPrefix+name)
		assert.False(t, ok, name)
	}
	assert.Eventually(t, func() bool {
		ls := h.svc.Snapshot().LoginStatus
		return ls.TaskID == queued && ls.State == LoginCancelled
	}, time.Second, 5*time.Millisecond)
}

// stoppingSink calls Stop from inside Present for the listed keys.
type stoppingSink struct {
	*notify.MemorySink
	svc     *Service
	keys    map[string]bool
	stopped chan lifecycle.Mode
}

func newStoppingSink(keys ...string) *stoppingSink {
	s := &stoppingSink{MemorySink: notify.NewMemorySink(), keys: map[string]bool{}, stopped: make(chan lifecycle.Mode, 4)}
	for _, k := range keys {
		s.keys[k] = true
	}
	return s
}

func (s *stoppingSink) Present(d notify.Descriptor) {
	s.MemorySink.Present(d)
	if s.keys[d.DedupKey] {
		mode, _ := s.svc.Stop()
		s.stopped <- mode
	}
}

func awaitStop(t *testing.T, s *stoppingSink) {
	t.Helper()
	select {
	case mode := <-s.stopped:
		assert.Equal(t, lifecycle.Stopped, mode)
	case <-time.After(2 * time.Second):
		t.Fatal("Stop called from the sink never returned")
	}
}

func TestStop_FromSinkOnBugTick(t *testing.T) {
	sink := newStoppingSink(notify.KeyBugSpawn)
	h := newHarness(t, func(c *Config) { c.Sink = sink })
	sink.svc = h.svc

	_, err := h.svc.Start()
	require.NoError(t, err)
	h.clock.BlockUntil(1)
	h.clock.Advance(tick)
	awaitStop(t, sink)
	assert.Equal(t, lifecycle.Stopped, h.svc.Mode())
	assert.Zero(t, h.clock.Pending(), "bug schedule cancelled")

	// later requests are not wedged behind the re-entrant Stop
	done := make(chan lifecycle.Mode, 1)
	go func() {
		mode, _ := h.svc.Start()
		done <- mode
	}()
	select {
	case mode := <-done:
		assert.Equal(t, lifecycle.Started, mode)
	case <-time.After(2 * time.Second):
		t.Fatal("Start blocked after a Stop from the sink")
	}
}

func TestStop_FromSinkOnPromote(t *testing.T) {
	sink := newStoppingSink(notify.KeyOngoing)
	h := newHarness(t, func(c *Config) { c.Sink = sink })
	sink.svc = h.svc

	_, err := h.svc.Start()
	require.NoError(t, err)
	_, err = h.svc.Promote()
	require.NoError(t, err)
	awaitStop(t, sink)

	h.flush()
	assert.Equal(t, lifecycle.Stopped, h.svc.Mode())
	assert.Empty(t, sink.Active(), "the ongoing notification is dismissed")
}

func TestStop_DiscardsNotificationsEvaluatedBeforeIt(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.svc.Start()
	require.NoError(t, err)
	epoch := h.svc.notes.Epoch()
	_, err = h.svc.Stop()
	require.NoError(t, err)

	assert.False(t, h.svc.notes.Offer(epoch, notify.Ongoing(1)), "offer from before Stop is dropped")
	h.flush()
	assert.Zero(t, h.sink.Total())
}
