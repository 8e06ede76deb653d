package orchestration

import (
	"context"

	"github.com/koscakluka/ema-quiz/core/audio"
	"github.com/koscakluka/ema-quiz/core/quiz"
	"github.com/koscakluka/ema-quiz/core/realtime"
	"github.com/koscakluka/ema-quiz/core/tools"
)

type OrchestratorOption func(*Orchestrator)

// Transport is the duplex channel to the conversational agent.
// *realtime.Client implements it.
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool
	Send(eventType string, fields map[string]any) error
	OnEvent(func(realtime.Event))
	OnError(func(error))
}

func WithTransport(transport Transport) OrchestratorOption {
	return func(o *Orchestrator) { o.transport = transport }
}

// AudioCapture is the microphone port. Frames are delivered to the callback
// passed to Record until Pause or End.
type AudioCapture interface {
	Begin(ctx context.Context) error
	Record(onFrame func(frame []byte)) error
	Pause() error
	End() error
	Status() audio.CaptureStatus
}

func WithAudioCapture(capture AudioCapture) OrchestratorOption {
	return func(o *Orchestrator) { o.capture = capture }
}

// AudioPlayback is the speaker port. Audio is tagged with the id of the item
// it belongs to so an interruption can report which item was cut off.
type AudioPlayback interface {
	Connect(ctx context.Context) error
	Add16BitPCM(pcm []byte, trackID string) error
	Interrupt() (*audio.TrackOffset, error)
	Close() error
}

func WithAudioPlayback(playback AudioPlayback) OrchestratorOption {
	return func(o *Orchestrator) { o.playback = playback }
}

// LevelMeter is implemented by ports that can report audio levels for
// visualization.
type LevelMeter interface {
	Levels(bands int) []float64
}

// Decoder turns the finished audio of an item into a playable file
// reference.
type Decoder interface {
	Decode(ctx context.Context, itemID string, pcm []byte) (string, error)
}

func WithDecoder(decoder Decoder) OrchestratorOption {
	return func(o *Orchestrator) { o.decoder = decoder }
}

func WithQuizBackend(backend quiz.Backend) OrchestratorOption {
	return func(o *Orchestrator) { o.quizBackend = backend }
}

// WithTools registers tools in addition to the quiz tools.
func WithTools(extra ...tools.Tool) OrchestratorOption {
	return func(o *Orchestrator) { o.extraTools = append(o.extraTools, extra...) }
}

func WithInstructions(instructions string) OrchestratorOption {
	return func(o *Orchestrator) {
		if instructions != "" {
			o.config.Instructions = instructions
		}
	}
}

func WithVoice(voice string) OrchestratorOption {
	return func(o *Orchestrator) {
		if voice != "" {
			o.config.Voice = voice
		}
	}
}

func WithTurnMode(mode TurnMode) OrchestratorOption {
	return func(o *Orchestrator) { o.turns.mode = mode }
}

// WithGate requires Authorize to succeed before Connect.
func WithGate(gate *Gate) OrchestratorOption {
	return func(o *Orchestrator) { o.gate = gate }
}

func WithEventHandler(handler EventHandler) OrchestratorOption {
	return func(o *Orchestrator) {
		if handler != nil {
			o.emit = handler.HandleEvent
		}
	}
}
