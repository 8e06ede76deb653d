// Package eventlog keeps a diagnostic trace of realtime protocol traffic.
//
// Consecutive events with the same source and type collapse into a single
// counted entry. Only the trailing entry is ever merged into, so interleaved
// traffic keeps its exact shape.
package eventlog

import (
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/koscakluka/ema-quiz/core/realtime"
)

// Entry is one line of the log. Time and position are those of the first
// event of the run; Count is the run length.
type Entry struct {
	Time    time.Time
	Source  realtime.Source
	Type    string
	Count   int
	Payload map[string]any
}

// audioFields names the payload field holding raw audio per event type.
var audioFields = map[string]string{
	"input_audio_buffer.append": "audio",
	"response.audio.delta":      "delta",
}

type Aggregator struct {
	mu      sync.Mutex
	start   time.Time
	entries []Entry
}

func NewAggregator() *Aggregator {
	return &Aggregator{start: time.Now()}
}

// Record adds ev to the log and returns the entry it ended up in, along with
// whether it was merged into the previous entry.
func (a *Aggregator) Record(ev realtime.Event) (Entry, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n := len(a.entries); n > 0 {
		last := &a.entries[n-1]
		if last.Source == ev.Source && last.Type == ev.Type {
			last.Count++
			return copyEntry(*last), true
		}
	}

	entry := Entry{
		Time:    ev.Time,
		Source:  ev.Source,
		Type:    ev.Type,
		Count:   1,
		Payload: stripAudio(ev.Type, ev.Payload()),
	}
	a.entries = append(a.entries, entry)
	return copyEntry(entry), false
}

// Snapshot returns a copy of the log in arrival order.
func (a *Aggregator) Snapshot() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()

	snapshot := make([]Entry, len(a.entries))
	for i, e := range a.entries {
		snapshot[i] = copyEntry(e)
	}
	return snapshot
}

// Reset drops every entry and restarts the elapsed-time clock.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.entries = nil
	a.start = time.Now()
}

// Elapsed formats the entry time relative to the last reset.
func (a *Aggregator) Elapsed(e Entry) string {
	a.mu.Lock()
	start := a.start
	a.mu.Unlock()

	return FormatElapsed(e.Time.Sub(start))
}

// FormatElapsed renders d as mm:ss.hh.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hundredths := int(d / (10 * time.Millisecond))
	seconds := hundredths / 100
	return fmt.Sprintf("%02d:%02d.%02d", (seconds/60)%60, seconds%60, hundredths%100)
}

func stripAudio(eventType string, payload map[string]any) map[string]any {
	field, ok := audioFields[eventType]
	if !ok {
		return payload
	}
	if encoded, ok := payload[field].(string); ok {
		payload[field] = decodedLen(encoded)
	}
	return payload
}

// decodedLen is the byte length of a base64 payload without decoding it.
func decodedLen(encoded string) int {
	padding := len(encoded) - len(strings.TrimRight(encoded, "="))
	return len(encoded)/4*3 - padding
}

func copyEntry(e Entry) Entry {
	e.Payload = maps.Clone(e.Payload)
	return e
}
