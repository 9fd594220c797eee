package httpapi

import (
	"encoding/json"
	"fmt"
	"strconv"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"eodd/internal/events"
	"eodd/pkg/types"
)

// CloudEvents attributes of streamed worker events.
const (
	EventSource     = "/eodd/worker"
	EventTypePrefix = "eod."
)

// encodeEvent renders e as a structured-mode CloudEvent JSON document.
func encodeEvent(e events.Event) ([]byte, error) {
	ce := cloudevents.NewEvent()
	ce.SetID(strconv.FormatUint(e.Seq, 10))
	ce.SetSource(EventSource)
	ce.SetType(EventTypePrefix + string(e.Kind))
	if !e.Time.IsZero() {
		ce.SetTime(e.Time)
	}
	if err := ce.SetData(cloudevents.ApplicationJSON, eventData(e)); err != nil {
		return nil, fmt.Errorf("event data: %w", err)
	}
	if err := ce.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event: %w", err)
	}
	return json.Marshal(ce)
}

func eventData(e events.Event) types.EventData {
	d := types.EventData{Kind: string(e.Kind), Seq: e.Seq}
	switch e.Kind {
	case events.BugSpawned:
		d.Count = e.Count
	case events.LoginResult:
		ok := e.Success
		d.Success = &ok
		d.Username = e.Username
	case events.WeatherUpdated:
		d.Text = e.Text
		d.Freshness = e.Freshness
	}
	return d
}
