package orchestration

import (
	"context"

	"github.com/koscakluka/ema-quiz/core/audio"
	"github.com/koscakluka/ema-quiz/core/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type TurnMode int

const (
	// TurnModeManual arms capture only while the user holds push-to-talk.
	TurnModeManual TurnMode = iota
	// TurnModeVAD keeps capture armed and lets the agent detect turns.
	TurnModeVAD
)

func (m TurnMode) String() string {
	if m == TurnModeVAD {
		return "server_vad"
	}
	return "manual"
}

type TurnState int

const (
	TurnIdle TurnState = iota
	TurnArmedManual
	TurnArmedVAD
	TurnRecording
)

func (s TurnState) String() string {
	switch s {
	case TurnArmedManual:
		return "armed_manual"
	case TurnArmedVAD:
		return "armed_vad"
	case TurnRecording:
		return "recording"
	default:
		return "idle"
	}
}

type turnController struct {
	mode          TurnMode
	state         TurnState
	connected     bool
	canPushToTalk bool
}

// TurnStatus is a snapshot of the turn controller.
type TurnStatus struct {
	Mode          TurnMode
	State         TurnState
	Connected     bool
	CanPushToTalk bool
}

func (o *Orchestrator) TurnStatus() TurnStatus {
	o.turnMu.Lock()
	defer o.turnMu.Unlock()

	return TurnStatus{
		Mode:          o.turns.mode,
		State:         o.turns.state,
		Connected:     o.turns.connected,
		CanPushToTalk: o.turns.canPushToTalk,
	}
}

// StartRecording begins a push-to-talk turn. Whatever the agent is saying is
// interrupted first and, if a track was playing, its response is cancelled
// at the point playback reached, before capture is armed.
func (o *Orchestrator) StartRecording(ctx context.Context) (err error) {
	_, span := tracer.Start(ctx, "start recording")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to start recording")
		}
		span.End()
	}()

	o.turnMu.Lock()
	defer o.turnMu.Unlock()

	switch {
	case !o.turns.connected:
		return ErrNotConnected
	case o.turns.mode != TurnModeManual || !o.turns.canPushToTalk:
		return ErrPushToTalk
	case o.turns.state == TurnRecording:
		return nil
	}

	if err := o.interruptLocked(); err != nil {
		return err
	}
	if err := o.record(); err != nil {
		return o.failLocked(err)
	}

	o.setStateLocked(TurnRecording)
	return nil
}

// StopRecording ends a push-to-talk turn and asks the agent to respond to
// what was captured.
func (o *Orchestrator) StopRecording(ctx context.Context) (err error) {
	_, span := tracer.Start(ctx, "stop recording")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to stop recording")
		}
		span.End()
	}()

	o.turnMu.Lock()
	defer o.turnMu.Unlock()

	if o.turns.state != TurnRecording {
		return ErrNotRecording
	}

	if o.capture != nil {
		if err := o.capture.Pause(); err != nil {
			return o.failLocked(captureError("pause", err))
		}
	}
	o.setStateLocked(TurnArmedManual)

	return o.createResponse()
}

// ChangeTurnMode switches between push-to-talk and voice activity
// detection. Capture is paused before the agent is told to stop detecting
// turns, and armed only after it was told to start.
func (o *Orchestrator) ChangeTurnMode(ctx context.Context, mode TurnMode) (err error) {
	_, span := tracer.Start(ctx, "change turn mode")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to change turn mode")
		}
		span.End()
	}()
	span.SetAttributes(attribute.String("turn.mode", mode.String()))

	o.turnMu.Lock()
	defer o.turnMu.Unlock()

	if mode == TurnModeManual && o.capture != nil && o.capture.Status() == audio.CaptureRecording {
		if err := o.capture.Pause(); err != nil {
			return o.failLocked(captureError("pause", err))
		}
	}

	o.turns.mode = mode
	if o.turns.connected {
		if err := o.updateSession(); err != nil {
			return err
		}
	}

	if mode == TurnModeVAD && o.turns.connected {
		if err := o.record(); err != nil {
			return o.failLocked(err)
		}
	}

	o.turns.canPushToTalk = mode == TurnModeManual
	switch {
	case !o.turns.connected:
		o.setStateLocked(TurnIdle)
	case mode == TurnModeVAD:
		o.setStateLocked(TurnArmedVAD)
	default:
		o.setStateLocked(TurnArmedManual)
	}
	return nil
}

// interruptLocked stops playback and cancels the response it belonged to.
// The interrupt always happens before the cancellation.
func (o *Orchestrator) interruptLocked() error {
	if o.playback == nil {
		return nil
	}

	offset, err := o.playback.Interrupt()
	if err != nil {
		return o.failLocked(playbackError("interrupt", err))
	}
	if offset == nil || offset.TrackID == "" {
		return nil
	}

	o.emit(events.NewConversationInterrupted(offset.TrackID, offset.Offset))
	if err := o.cancelResponse(offset.TrackID, offset.Offset); err != nil {
		logger.Warn("failed to cancel interrupted response", "item_id", offset.TrackID, "error", err)
	}
	return nil
}

// handleInterruption reacts to the agent detecting user speech while it was
// still talking.
func (o *Orchestrator) handleInterruption() {
	o.turnMu.Lock()
	defer o.turnMu.Unlock()

	if !o.turns.connected {
		return
	}
	_ = o.interruptLocked()
}

func (o *Orchestrator) record() error {
	if o.capture == nil {
		return nil
	}
	if err := o.capture.Record(o.onFrame); err != nil {
		return captureError("record", err)
	}
	return nil
}

// onFrame runs on the audio thread; frames are handed to pumpFrames so the
// device callback never waits on the network.
func (o *Orchestrator) onFrame(frame []byte) {
	select {
	case o.frames <- frame:
	default:
		logger.Warn("dropping captured frame, transport is not keeping up", "bytes", len(frame))
	}
}

// drainFrames discards captured frames that were never sent, so they cannot
// leak into the next session.
func (o *Orchestrator) drainFrames() {
	for {
		select {
		case <-o.frames:
		default:
			return
		}
	}
}

func (o *Orchestrator) pumpFrames(ctx context.Context) {
	defer o.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-o.frames:
			if err := o.appendInputAudio(frame); err != nil {
				logger.Debug("failed to append input audio", "error", err)
			}
		}
	}
}

func (o *Orchestrator) setPushToTalk(enabled bool) {
	o.turnMu.Lock()
	defer o.turnMu.Unlock()

	o.turns.canPushToTalk = enabled
	o.emitTurnStateLocked()
}

func (o *Orchestrator) setStateLocked(state TurnState) {
	o.turns.state = state
	o.emitTurnStateLocked()
}

func (o *Orchestrator) emitTurnStateLocked() {
	o.emit(events.NewTurnStateChanged(o.turns.state.String(), o.turns.mode.String(), o.turns.canPushToTalk))
}
