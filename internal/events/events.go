// Package events defines the immutable state events produced by the worker
// and consumed by observers and the notification gate.
package events

import "time"

// Kind tags the variant an Event carries.
type Kind string

const (
	BugSpawned     Kind = "bug_spawned"
	LoginResult    Kind = "login_result"
	WeatherUpdated Kind = "weather_updated"
	ReminderDue    Kind = "reminder_due"
)

// Event is a tagged value. Only the fields of its Kind are meaningful.
// Seq and Time are stamped by the broadcaster at publication.
type Event struct {
	Kind Kind
	Seq  uint64
	Time time.Time

	// BugSpawned
	Count int
	// LoginResult
	Success  bool
	Username string
	// WeatherUpdated
	Text      string
	Freshness string
}

func NewBugSpawned(count int) Event { return Event{Kind: BugSpawned, Count: count} }

func NewLoginResult(success bool, username string) Event {
	return Event{Kind: LoginResult, Success: success, Username: username}
}

func NewWeatherUpdated(text, freshness string) Event {
	return Event{Kind: WeatherUpdated, Text: text, Freshness: freshness}
}

func NewReminderDue() Event { return Event{Kind: ReminderDue} }

// Fields returns the kind-specific payload as a map, for structured logs.
func (e Event) Fields() map[string]any {
	switch e.Kind {
	case BugSpawned:
		return map[string]any{"count": e.Count}
	case LoginResult:
		return map[string]any{"success": e.Success, "username": e.Username}
	case WeatherUpdated:
		return map[string]any{"text": e.Text, "freshness": e.Freshness}
	default:
		return map[string]any{}
	}
}
