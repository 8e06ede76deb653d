package console

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/koscakluka/ema-quiz/core/events"
)

const bridgeBufferSize = 256

// eventMsg wakes the model after the orchestrator changed something. The
// model re-reads snapshots, so the event itself only carries what snapshots
// cannot tell.
type eventMsg struct {
	event events.Event
}

// Bridge forwards orchestrator events into the program. HandleEvent never
// blocks: the orchestrator emits while holding its locks and the program may
// be busy calling back into it.
//
// Failures travel on their own slot: a refresh can be dropped, the error that
// ended the session cannot.
type Bridge struct {
	events   chan events.Event
	failures chan events.Event
}

func NewBridge() *Bridge {
	return &Bridge{
		events:   make(chan events.Event, bridgeBufferSize),
		failures: make(chan events.Event, 1),
	}
}

func (b *Bridge) HandleEvent(event events.Event) {
	if event.Kind() == events.KindSessionFailed {
		b.handleFailure(event)
		return
	}
	select {
	case b.events <- event:
	default:
		// A full buffer means a refresh is already pending.
	}
}

// handleFailure keeps the newest failure when an older one was not read yet.
func (b *Bridge) handleFailure(event events.Event) {
	for {
		select {
		case b.failures <- event:
			return
		default:
		}
		select {
		case <-b.failures:
		default:
		}
	}
}

func (b *Bridge) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case event := <-b.failures:
			return eventMsg{event: event}
		default:
		}
		select {
		case event := <-b.failures:
			return eventMsg{event: event}
		case event := <-b.events:
			return eventMsg{event: event}
		}
	}
}
