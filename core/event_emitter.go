package orchestration

import "github.com/koscakluka/ema-quiz/core/events"

// EventHandler receives every notification the orchestrator sends. It is
// called synchronously from the goroutine that caused the change and must
// not call back into the orchestrator.
type EventHandler interface {
	HandleEvent(events.Event)
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(events.Event)

func (f EventHandlerFunc) HandleEvent(event events.Event) { f(event) }

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}
