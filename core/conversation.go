package orchestration

import (
	"context"
	"errors"

	"github.com/koscakluka/ema-quiz/core/conversation"
	"github.com/koscakluka/ema-quiz/core/events"
	"github.com/koscakluka/ema-quiz/core/realtime"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// handleRealtimeEvent receives every protocol event. Server events arrive on
// the transport's reader goroutine, one at a time and in order.
func (o *Orchestrator) handleRealtimeEvent(ev realtime.Event) {
	if entry, merged := o.log.Record(ev); merged {
		o.emit(events.NewEventLogMerged(entry))
	} else {
		o.emit(events.NewEventLogged(entry))
	}

	if ev.Source != realtime.SourceServer {
		return
	}

	switch ev.Type {
	case "error":
		apiErr, _ := realtime.AsAPIError(ev)
		logger.Warn("realtime API reported an error", "error", apiErr)
	case "input_audio_buffer.speech_started":
		o.handleInterruption()
	}

	update, err := o.conversation.Process(ev)
	if err != nil {
		logger.Warn("failed to reconcile conversation event", "type", ev.Type, "error", err)
		return
	}
	if update == nil {
		return
	}

	if ev.Type == "conversation.item.deleted" {
		o.emit(events.NewConversationItemDeleted(update.Item.ID))
		return
	}
	o.handleItemUpdate(ev.Type, update)
}

func (o *Orchestrator) handleItemUpdate(eventType string, update *conversation.Update) {
	item := update.Item

	if update.Delta != nil && len(update.Delta.Audio) > 0 && o.playback != nil {
		if err := o.playback.Add16BitPCM(update.Delta.Audio, item.ID); err != nil {
			o.turnMu.Lock()
			if o.turns.connected {
				_ = o.failLocked(playbackError("add audio", err))
			}
			o.turnMu.Unlock()
			return
		}
	}

	o.emit(events.NewConversationUpdated(item, update.Delta))

	if item.Status == conversation.StatusCompleted && len(item.Formatted.Audio) > 0 {
		o.decode(item)
	}
	if eventType == "response.output_item.done" && item.Status == conversation.StatusCompleted && item.Formatted.Tool != nil {
		o.callTool(*item.Formatted.Tool)
	}
}

// decode turns the item's audio into a file on its own goroutine. It may
// finish after later updates of the same item.
func (o *Orchestrator) decode(item conversation.Item) {
	o.decodeMu.Lock()
	if o.decoded[item.ID] == len(item.Formatted.Audio) {
		o.decodeMu.Unlock()
		return
	}
	o.decoded[item.ID] = len(item.Formatted.Audio)
	o.decodeMu.Unlock()

	ctx, ok := o.startTask()
	if !ok {
		return
	}
	go func() {
		defer o.wg.Done()

		ctx, span := tracer.Start(ctx, "decode item audio")
		defer span.End()
		span.SetAttributes(
			attribute.String("item.id", item.ID),
			attribute.Int("audio.bytes", len(item.Formatted.Audio)),
		)

		path, err := o.decoder.Decode(ctx, item.ID, item.Formatted.Audio)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to decode item audio")
				logger.Warn("failed to decode item audio", "item_id", item.ID, "error", err)
			}
			return
		}

		if updated, ok := o.conversation.SetFile(item.ID, path); ok {
			o.emit(events.NewConversationUpdated(updated, nil))
		}
	}()
}

// startTask registers background work with Close. The returned context is
// cancelled when the session ends.
func (o *Orchestrator) startTask() (context.Context, bool) {
	o.turnMu.Lock()
	defer o.turnMu.Unlock()

	if o.closed {
		return nil, false
	}
	o.wg.Add(1)
	return o.sessionCtx, true
}
