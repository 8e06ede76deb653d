package realtime

import (
	"encoding/json"
	"time"
)

// Source tells whether an event was sent by this client or received from the
// server.
type Source string

const (
	SourceClient Source = "client"
	SourceServer Source = "server"
)

// Event is a single protocol message, in either direction, as it went over
// the wire.
type Event struct {
	Time   time.Time
	Source Source
	Type   string
	Raw    json.RawMessage
}

// Decode unmarshals the raw message into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Raw, v)
}

// Payload returns the message as a generic JSON object.
func (e Event) Payload() map[string]any {
	payload := map[string]any{}
	_ = json.Unmarshal(e.Raw, &payload)
	return payload
}

func newEvent(source Source, raw []byte) (Event, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return Event{}, err
	}

	return Event{
		Time:   time.Now(),
		Source: source,
		Type:   head.Type,
		Raw:    raw,
	}, nil
}
