package types

// LoginStatus reports the outcome of the latest login attempt.
type LoginStatus struct {
	// One of "", "pending", "ok", "exists", "failed", "cancelled".
	// example: ok
	State string `json:"state" example:"ok"`
	// example: ash
	Username string `json:"username,omitempty" example:"ash"`
	// Task id of the attempt.
	TaskID string `json:"task_id,omitempty"`
}

// Snapshot is the observable state of the worker, returned by GET /snapshot.
type Snapshot struct {
	// Lifecycle mode: stopped, started, bound or foreground.
	// example: bound
	Mode string `json:"mode" example:"bound"`
	// Bugs spawned since the worker was created.
	// example: 7
	BugCount int `json:"bug_count" example:"7"`
	// Latest weather text.
	// example: Singapore: light rain, 27.3°C
	WeatherText string `json:"weather_text" example:"Singapore: light rain, 27.3°C"`
	// fresh, stale or fallback; empty before the first fetch.
	// example: fresh
	WeatherFreshness string      `json:"weather_freshness,omitempty" example:"fresh"`
	LoginStatus      LoginStatus `json:"login_status"`
	// Number of bound observers.
	// example: 1
	Observers int `json:"observers" example:"1"`
	// Bug-spawn ticks processed.
	// example: 21
	Ticks uint64 `json:"ticks" example:"21"`
}

// QueueStatus summarizes the task queue.
type QueueStatus struct {
	Capacity  int    `json:"capacity"`
	Workers   int    `json:"workers"`
	Pending   int    `json:"pending"`
	Running   int    `json:"running"`
	Succeeded uint64 `json:"succeeded"`
	Failed    uint64 `json:"failed"`
	Cancelled uint64 `json:"cancelled"`
}

// ScheduleStatus describes one periodic schedule.
type ScheduleStatus struct {
	// example: bugs
	Name   string `json:"name" example:"bugs"`
	Active bool   `json:"active"`
	Fires  uint64 `json:"fires"`
	// Next planned fire time (unix seconds), 0 when inactive.
	NextRunUnix int64 `json:"next_run_unix"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Snapshot         Snapshot         `json:"snapshot"`
	Queue            QueueStatus      `json:"queue"`
	Schedules        []ScheduleStatus `json:"schedules"`
	SpawnProbability float64          `json:"spawn_probability"`
	NotifyCooldownMS int64            `json:"notify_cooldown_ms"`
	NotifyEvery      int              `json:"notify_every"`
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

// TaskStatus is returned by GET /tasks/{id}.
type TaskStatus struct {
	ID string `json:"id"`
	// pending, running, succeeded, failed or cancelled.
	Status          string `json:"status"`
	SubmittedAtUnix int64  `json:"submitted_at_unix"`
	Value           any    `json:"value,omitempty"`
	Error           string `json:"error,omitempty"`
}

// WeatherResponse is returned by POST /weather/refresh.
type WeatherResponse struct {
	Text          string `json:"text"`
	Freshness     string `json:"freshness"`
	FetchedAtUnix int64  `json:"fetched_at_unix,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Notification is an entry of GET /notifications.
type Notification struct {
	Title         string `json:"title"`
	Body          string `json:"body"`
	ChannelID     string `json:"channel_id"`
	DedupKey      string `json:"dedup_key"`
	Ongoing       bool   `json:"ongoing,omitempty"`
	Updates       int    `json:"updates"`
	UpdatedAtUnix int64  `json:"updated_at_unix"`
}
