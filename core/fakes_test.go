package orchestration

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/koscakluka/ema-quiz/core/audio"
	"github.com/koscakluka/ema-quiz/core/events"
	"github.com/koscakluka/ema-quiz/core/quiz"
	"github.com/koscakluka/ema-quiz/core/realtime"
)

// callLog records port and transport calls in the order they happened.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = nil
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.calls)
}

func (l *callLog) index(call string) int {
	return slices.Index(l.snapshot(), call)
}

func (l *callLog) contains(call string) bool {
	return l.index(call) >= 0
}

type sentEvent struct {
	Type   string
	Fields map[string]any
}

type fakeTransport struct {
	log *callLog

	mu         sync.Mutex
	connected  bool
	sent       []sentEvent
	connectErr error
	onEvent    func(realtime.Event)
	onError    func(error)
}

func (f *fakeTransport) Connect(context.Context) error {
	f.log.add("transport.connect")
	if f.connectErr != nil {
		return f.connectErr
	}
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Disconnect() error {
	f.log.add("transport.disconnect")
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) Send(eventType string, fields map[string]any) error {
	f.mu.Lock()
	if !f.connected {
		f.mu.Unlock()
		return realtime.ErrNotConnected
	}
	f.sent = append(f.sent, sentEvent{Type: eventType, Fields: fields})
	onEvent := f.onEvent
	f.mu.Unlock()

	f.log.add("send:" + eventType)

	message := map[string]any{"type": eventType}
	for k, v := range fields {
		message[k] = v
	}
	raw, _ := json.Marshal(message)
	onEvent(realtime.Event{Time: time.Now(), Source: realtime.SourceClient, Type: eventType, Raw: raw})
	return nil
}

func (f *fakeTransport) OnEvent(h func(realtime.Event)) { f.onEvent = h }
func (f *fakeTransport) OnError(h func(error))          { f.onError = h }

func (f *fakeTransport) sentOfType(eventType string) []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matching []sentEvent
	for _, ev := range f.sent {
		if ev.Type == eventType {
			matching = append(matching, ev)
		}
	}
	return matching
}

// receive injects a server event the way the reader goroutine would.
func (f *fakeTransport) receive(t *testing.T, payload map[string]any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	f.onEvent(realtime.Event{Time: time.Now(), Source: realtime.SourceServer, Type: payload["type"].(string), Raw: raw})
}

type fakeCapture struct {
	log *callLog

	mu        sync.Mutex
	status    audio.CaptureStatus
	onFrame   func([]byte)
	beginErr  error
	recordErr error
}

func (f *fakeCapture) Begin(context.Context) error {
	f.log.add("capture.begin")
	return f.beginErr
}

func (f *fakeCapture) Record(onFrame func([]byte)) error {
	f.log.add("capture.record")
	if f.recordErr != nil {
		return f.recordErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onFrame = onFrame
	f.status = audio.CaptureRecording
	return nil
}

func (f *fakeCapture) Pause() error {
	f.log.add("capture.pause")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onFrame = nil
	f.status = audio.CaptureIdle
	return nil
}

func (f *fakeCapture) End() error {
	f.log.add("capture.end")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onFrame = nil
	f.status = audio.CaptureIdle
	return nil
}

func (f *fakeCapture) Status() audio.CaptureStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == "" {
		return audio.CaptureIdle
	}
	return f.status
}

func (f *fakeCapture) emitFrame(frame []byte) {
	f.mu.Lock()
	onFrame := f.onFrame
	f.mu.Unlock()
	if onFrame != nil {
		onFrame(frame)
	}
}

type fakePlayback struct {
	log *callLog

	mu        sync.Mutex
	interrupt *audio.TrackOffset
	addErr    error
	added     map[string][]byte
}

func (f *fakePlayback) Connect(context.Context) error {
	f.log.add("playback.connect")
	return nil
}

func (f *fakePlayback) Add16BitPCM(pcm []byte, trackID string) error {
	f.log.add("playback.add:" + trackID)
	if f.addErr != nil {
		return f.addErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.added == nil {
		f.added = map[string][]byte{}
	}
	f.added[trackID] = append(f.added[trackID], pcm...)
	return nil
}

func (f *fakePlayback) Interrupt() (*audio.TrackOffset, error) {
	f.log.add("playback.interrupt")
	f.mu.Lock()
	defer f.mu.Unlock()
	offset := f.interrupt
	f.interrupt = nil
	return offset, nil
}

func (f *fakePlayback) Close() error {
	f.log.add("playback.close")
	return nil
}

type fakeDecoder struct {
	decoded chan string
}

func (f *fakeDecoder) Decode(_ context.Context, itemID string, pcm []byte) (string, error) {
	path := fmt.Sprintf("/tmp/%s-%d.wav", itemID, len(pcm))
	f.decoded <- path
	return path, nil
}

type fakeQuizBackend struct {
	question quiz.Question
	result   quiz.CheckResult
	checkErr error
	inCheck  chan struct{}
	release  chan struct{}
}

func (f *fakeQuizBackend) FetchQuestion(context.Context, string) (quiz.Question, error) {
	return f.question, nil
}

func (f *fakeQuizBackend) CheckAnswer(context.Context, string, string) (quiz.CheckResult, error) {
	if f.inCheck != nil {
		f.inCheck <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.checkErr != nil {
		return quiz.CheckResult{}, f.checkErr
	}
	return f.result, nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) HandleEvent(event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) ofKind(kind events.Kind) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matching []events.Event
	for _, event := range r.events {
		if event.Kind() == kind {
			matching = append(matching, event)
		}
	}
	return matching
}

type harness struct {
	log       *callLog
	transport *fakeTransport
	capture   *fakeCapture
	playback  *fakePlayback
	decoder   *fakeDecoder
	backend   *fakeQuizBackend
	events    *eventRecorder
}

func newHarness(t *testing.T, opts ...OrchestratorOption) (*Orchestrator, *harness) {
	t.Helper()

	log := &callLog{}
	h := &harness{
		log:       log,
		transport: &fakeTransport{log: log},
		capture:   &fakeCapture{log: log},
		playback:  &fakePlayback{log: log},
		decoder:   &fakeDecoder{decoded: make(chan string, 8)},
		backend: &fakeQuizBackend{
			question: quiz.Question{QuizID: "q1", Question: "Capital of France?", Options: []string{"Paris", "Rome"}},
			result:   quiz.CheckResult{IsCorrect: true, Result: "Paris"},
		},
		events: &eventRecorder{},
	}

	base := []OrchestratorOption{
		WithTransport(h.transport),
		WithAudioCapture(h.capture),
		WithAudioPlayback(h.playback),
		WithDecoder(h.decoder),
		WithQuizBackend(h.backend),
		WithEventHandler(h.events),
	}
	o := NewOrchestrator(append(base, opts...)...)
	t.Cleanup(o.Close)
	return o, h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func assertBefore(t *testing.T, log *callLog, first, second string) {
	t.Helper()
	i, j := log.index(first), log.index(second)
	if i < 0 || j < 0 {
		t.Fatalf("expected both %q and %q to be called, got %v", first, second, log.snapshot())
	}
	if i >= j {
		t.Fatalf("expected %q before %q, got %v", first, second, log.snapshot())
	}
}
