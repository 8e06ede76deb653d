package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/koscakluka/ema-quiz/core/audio"
	"github.com/koscakluka/ema-quiz/core/conversation"
	"github.com/koscakluka/ema-quiz/core/eventlog"
	"github.com/koscakluka/ema-quiz/core/events"
	"github.com/koscakluka/ema-quiz/core/quiz"
	"github.com/koscakluka/ema-quiz/core/tools"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// frameQueueSize bounds how many captured frames may wait for the transport.
const frameQueueSize = 64

type Orchestrator struct {
	transport Transport
	capture   AudioCapture
	playback  AudioPlayback
	decoder   Decoder
	gate      *Gate
	emit      eventEmitter

	quizBackend quiz.Backend
	extraTools  []tools.Tool
	config      sessionConfig
	encoding    audio.EncodingInfo

	log          *eventlog.Aggregator
	conversation *conversation.Store
	quiz         *quiz.Session
	tools        *tools.Dispatcher

	// turns is guarded by turnMu, which also serializes connect, disconnect
	// and every port operation.
	turnMu     sync.Mutex
	turns      turnController
	authorized bool
	closed     bool

	sessionCtx    context.Context
	cancelSession context.CancelFunc
	frames        chan []byte

	decodeMu sync.Mutex
	decoded  map[string]int

	wg sync.WaitGroup
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		emit:     noopEventEmitter,
		encoding: audio.GetDefaultEncodingInfo(),
		config:   defaultSessionConfig(),
		turns:    turnController{mode: TurnModeManual, state: TurnIdle},
		frames:   make(chan []byte, frameQueueSize),
		decoded:  map[string]int{},
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.quizBackend == nil {
		o.quizBackend = quiz.NewHTTPBackend()
	}
	if o.decoder == nil {
		o.decoder = audio.NewFileDecoder("")
	}

	o.log = eventlog.NewAggregator()
	o.conversation = conversation.NewStore(o.encoding)
	o.quiz = quiz.NewSession(o.quizBackend)
	o.tools = tools.NewDispatcher(append(quiz.Tools(o.quiz), o.extraTools...)...)
	o.sessionCtx, o.cancelSession = context.WithCancel(context.Background())
	o.cancelSession()

	if o.transport != nil {
		o.transport.OnEvent(o.handleRealtimeEvent)
		o.transport.OnError(o.handleTransportError)
	}

	return o
}

// Authorize passes the session gate. Without a gate every pin is accepted.
func (o *Orchestrator) Authorize(pin string) error {
	o.turnMu.Lock()
	defer o.turnMu.Unlock()

	if !o.gate.Check(pin) {
		logger.Warn("session gate rejected pin")
		return ErrUnauthorized
	}
	o.authorized = true
	return nil
}

func (o *Orchestrator) IsAuthorized() bool {
	o.turnMu.Lock()
	defer o.turnMu.Unlock()
	return o.gate == nil || o.authorized
}

// Connect opens the ports and the transport, configures the session and
// greets the agent. In voice activity mode capture starts right away; in
// manual mode it waits for StartRecording.
func (o *Orchestrator) Connect(ctx context.Context) (err error) {
	ctx, span := tracer.Start(ctx, "connect")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to connect")
		}
		span.End()
	}()

	o.turnMu.Lock()
	defer o.turnMu.Unlock()

	switch {
	case o.closed:
		return ErrClosed
	case o.gate != nil && !o.authorized:
		return ErrUnauthorized
	case o.transport == nil:
		return ErrNoTransport
	case o.turns.connected:
		return ErrAlreadyConnected
	}

	o.log.Reset()
	o.drainFrames()
	o.sessionCtx, o.cancelSession = context.WithCancel(context.Background())
	o.wg.Add(1)
	go o.pumpFrames(o.sessionCtx)

	if o.capture != nil {
		if err := o.capture.Begin(ctx); err != nil {
			return o.failLocked(captureError("begin", err))
		}
	}
	if o.playback != nil {
		if err := o.playback.Connect(ctx); err != nil {
			return o.failLocked(playbackError("connect", err))
		}
	}

	if err := o.transport.Connect(ctx); err != nil {
		return o.failLocked(fmt.Errorf("failed to connect transport: %w", err))
	}
	o.turns.connected = true

	if err := o.updateSession(); err != nil {
		return o.failLocked(err)
	}
	if err := o.sendUserText("Hello!"); err != nil {
		return o.failLocked(err)
	}

	span.SetAttributes(attribute.String("turn.mode", o.turns.mode.String()))
	o.turns.canPushToTalk = o.turns.mode == TurnModeManual
	if o.turns.mode == TurnModeVAD {
		if err := o.record(); err != nil {
			return o.failLocked(err)
		}
		o.setStateLocked(TurnArmedVAD)
	} else {
		o.setStateLocked(TurnArmedManual)
	}

	logger.Info("session connected", "turn_mode", o.turns.mode.String())
	o.emit(events.NewSessionConnected())
	return nil
}

// Disconnect tears the session down and clears the event log, the
// conversation and the memory store. Score and question survive.
func (o *Orchestrator) Disconnect() error {
	o.turnMu.Lock()
	defer o.turnMu.Unlock()

	if !o.turns.connected && o.turns.state == TurnIdle {
		return nil
	}
	return o.disconnectLocked()
}

func (o *Orchestrator) disconnectLocked() error {
	var errs error

	o.cancelSession()
	o.turns.connected = false
	o.turns.canPushToTalk = false

	o.log.Reset()
	o.conversation.Clear()
	o.quiz.ClearMemory()
	o.decodeMu.Lock()
	o.decoded = map[string]int{}
	o.decodeMu.Unlock()

	if err := o.transport.Disconnect(); err != nil {
		errs = errors.Join(errs, fmt.Errorf("failed to disconnect transport: %w", err))
	}
	if o.capture != nil {
		if err := o.capture.End(); err != nil {
			errs = errors.Join(errs, captureError("end", err))
		}
	}
	if o.playback != nil {
		if _, err := o.playback.Interrupt(); err != nil {
			errs = errors.Join(errs, playbackError("interrupt", err))
		}
		if err := o.playback.Close(); err != nil {
			errs = errors.Join(errs, playbackError("close", err))
		}
	}

	o.drainFrames()

	o.setStateLocked(TurnIdle)
	if errs != nil {
		logger.Warn("session disconnected with errors", "error", errs)
	} else {
		logger.Info("session disconnected")
	}
	o.emit(events.NewSessionDisconnected())
	return errs
}

// failLocked ends the session after a fatal error and returns err.
func (o *Orchestrator) failLocked(err error) error {
	logger.Error("session failed", "error", err)
	o.emit(events.NewSessionFailed(err))
	if disconnectErr := o.disconnectLocked(); disconnectErr != nil {
		logger.Debug("teardown after failure was incomplete", "error", disconnectErr)
	}
	return err
}

func (o *Orchestrator) handleTransportError(err error) {
	o.turnMu.Lock()
	defer o.turnMu.Unlock()

	if !o.turns.connected {
		return
	}
	_ = o.failLocked(err)
}

// Close disconnects, unregisters all tools and waits for background work.
func (o *Orchestrator) Close() {
	o.turnMu.Lock()
	if !o.closed {
		o.closed = true
		if o.turns.connected || o.turns.state != TurnIdle {
			_ = o.disconnectLocked()
		}
		o.tools.Reset()
	}
	o.turnMu.Unlock()

	o.wg.Wait()
}

func (o *Orchestrator) IsConnected() bool {
	o.turnMu.Lock()
	defer o.turnMu.Unlock()
	return o.turns.connected
}

// Items returns a snapshot of the conversation.
func (o *Orchestrator) Items() []conversation.Item {
	return o.conversation.Items()
}

// EventLog returns a snapshot of the protocol event log.
func (o *Orchestrator) EventLog() []eventlog.Entry {
	return o.log.Snapshot()
}

// Elapsed formats the time of a log entry relative to session start.
func (o *Orchestrator) Elapsed(entry eventlog.Entry) string {
	return o.log.Elapsed(entry)
}

func (o *Orchestrator) Quiz() quiz.State {
	return o.quiz.State()
}

func (o *Orchestrator) Memory() map[string]string {
	return o.quiz.Memory()
}

// SendText sends a typed user message and asks for a response.
func (o *Orchestrator) SendText(text string) error {
	o.turnMu.Lock()
	defer o.turnMu.Unlock()

	if !o.turns.connected {
		return ErrNotConnected
	}
	return o.sendUserText(text)
}

// DeleteItem removes an item locally and asks the agent to forget it. The
// local removal does not wait for the agent.
func (o *Orchestrator) DeleteItem(id string) {
	if !o.conversation.Delete(id) {
		return
	}
	o.emit(events.NewConversationItemDeleted(id))

	if err := o.deleteItem(id); err != nil {
		logger.Warn("failed to request item deletion", "item_id", id, "error", err)
	}
}

// SubmitAnswer is the quiz widget's answer path. Push-to-talk is disabled
// while the answer is checked and enabled again afterwards, whatever the
// outcome. A submission refused outright leaves push-to-talk alone.
func (o *Orchestrator) SubmitAnswer(ctx context.Context, answer string) error {
	submission, err := o.quiz.Begin()
	if err != nil {
		logger.Warn("answer submission refused", "error", err)
		return err
	}

	o.setPushToTalk(false)
	defer o.setPushToTalk(true)
	o.emit(events.NewQuizUpdated(o.quiz.State()))

	_, err = submission.Check(ctx, answer)
	o.emit(events.NewQuizUpdated(o.quiz.State()))
	if err != nil {
		logger.Warn("answer submission failed", "error", err)
	}
	return err
}
