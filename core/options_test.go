package orchestration

import (
	"context"
	"testing"
	"time"

	"github.com/koscakluka/ema-quiz/core/tools"
)

func TestEmptySessionOptionsKeepDefaults(t *testing.T) {
	o := NewOrchestrator(WithInstructions(""), WithVoice(""))

	if o.config.Instructions != DefaultInstructions || o.config.Voice != DefaultVoice {
		t.Fatalf("expected defaults to survive empty options, got %+v", o.config)
	}
}

func TestWithVoiceIsSentOnConnect(t *testing.T) {
	o, h := newHarness(t, WithVoice("alloy"), WithInstructions("Host a geography quiz."))

	if err := o.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	session := h.transport.sentOfType("session.update")[0].Fields["session"].(map[string]any)
	if session["voice"] != "alloy" || session["instructions"] != "Host a geography quiz." {
		t.Fatalf("unexpected session %v", session)
	}
}

func TestWithToolsRegistersExtraTools(t *testing.T) {
	type echoArgs struct {
		Text string `json:"text"`
	}
	echo := tools.New("echo", "Repeats text", func(_ context.Context, args echoArgs) (any, error) {
		return args, nil
	})

	o, h := newHarness(t, WithTools(echo))
	if err := o.Connect(context.Background()); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	session := h.transport.sentOfType("session.update")[0].Fields["session"].(map[string]any)
	definitions := session["tools"].([]map[string]any)
	if len(definitions) != 5 || definitions[4]["name"] != "echo" {
		t.Fatalf("expected echo after the quiz tools, got %v", definitions)
	}
}

func TestConnectWithoutTransport(t *testing.T) {
	o := NewOrchestrator()
	defer o.Close()

	if err := o.Connect(context.Background()); err != ErrNoTransport {
		t.Fatalf("expected ErrNoTransport, got %v", err)
	}
}

func TestGate(t *testing.T) {
	var open *Gate
	if !open.Check("anything") {
		t.Fatalf("a nil gate must accept every pin")
	}

	gate := NewGate("1234")
	for pin, want := range map[string]bool{"1234": true, "123": false, "": false, "12345": false} {
		if got := gate.Check(pin); got != want {
			t.Fatalf("Check(%q) = %v, want %v", pin, got, want)
		}
	}
}

type meteredCapture struct {
	fakeCapture
}

func (m *meteredCapture) Levels(bands int) []float64 {
	return make([]float64, bands)
}

func TestVisualizeSamplesUntilCancelled(t *testing.T) {
	capture := &meteredCapture{fakeCapture: fakeCapture{log: &callLog{}}}
	o := NewOrchestrator(WithAudioCapture(capture))
	defer o.Close()

	ctx, cancel := context.WithCancel(context.Background())
	samples := make(chan Levels, 16)
	done := make(chan struct{})
	go func() {
		o.Visualize(ctx, time.Millisecond, 4, func(levels Levels) {
			select {
			case samples <- levels:
			default:
			}
		})
		close(done)
	}()

	levels := <-samples
	cancel()
	<-done

	if len(levels.Input) != 4 || levels.Output != nil {
		t.Fatalf("unexpected levels %+v", levels)
	}
}
