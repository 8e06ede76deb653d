package console

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	orchestration "github.com/koscakluka/ema-quiz/core"
	"github.com/koscakluka/ema-quiz/core/conversation"
	"github.com/koscakluka/ema-quiz/core/eventlog"
	"github.com/koscakluka/ema-quiz/core/events"
	"github.com/koscakluka/ema-quiz/core/quiz"
	"github.com/koscakluka/ema-quiz/core/realtime"
)

type fakeController struct {
	mu         sync.Mutex
	pin        string
	authorized bool
	calls      []string
	answers    []string
	items      []conversation.Item
	quiz       quiz.State
}

func (f *fakeController) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeController) Authorize(pin string) error {
	if pin != f.pin {
		return orchestration.ErrUnauthorized
	}
	f.authorized = true
	return nil
}

func (f *fakeController) IsAuthorized() bool { return f.authorized }

func (f *fakeController) Connect(context.Context) error {
	f.record("connect")
	return nil
}

func (f *fakeController) Disconnect() error {
	f.record("disconnect")
	return nil
}

func (f *fakeController) StartRecording(context.Context) error {
	f.record("start")
	return nil
}

func (f *fakeController) StopRecording(context.Context) error {
	f.record("stop")
	return nil
}

func (f *fakeController) ChangeTurnMode(_ context.Context, mode orchestration.TurnMode) error {
	f.record("mode:" + mode.String())
	return nil
}

func (f *fakeController) SendText(text string) error {
	f.record("text:" + text)
	return nil
}

func (f *fakeController) SubmitAnswer(_ context.Context, answer string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, answer)
	return nil
}

func (f *fakeController) DeleteItem(id string) { f.record("delete:" + id) }

func (f *fakeController) Items() []conversation.Item { return f.items }

func (f *fakeController) EventLog() []eventlog.Entry { return nil }

func (f *fakeController) Elapsed(eventlog.Entry) string { return "00:00.00" }

func (f *fakeController) Quiz() quiz.State { return f.quiz }

func (f *fakeController) lastCall() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return ""
	}
	return f.calls[len(f.calls)-1]
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeKeys(m Model, msgs ...tea.KeyMsg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

// press feeds a key whose command calls into the controller, runs that
// command and feeds its result back.
func press(t *testing.T, m Model, msg tea.KeyMsg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd == nil {
		return m
	}
	switch result := cmd().(type) {
	case actionMsg, authorizedMsg:
		next, _ = m.Update(result)
		m = next.(Model)
	}
	return m
}

func newModel(ctrl *fakeController) Model {
	return New(context.Background(), ctrl, NewBridge())
}

func TestPinGate(t *testing.T) {
	ctrl := &fakeController{pin: "1234"}
	m := newModel(ctrl)

	if !strings.Contains(m.View(), "PIN") {
		t.Fatalf("expected the pin prompt, got %q", m.View())
	}

	m = typeKeys(m, runes("9"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.authorized || !errors.Is(m.err, orchestration.ErrUnauthorized) {
		t.Fatalf("expected wrong pin to be rejected, err %v", m.err)
	}

	m = typeKeys(m, runes("1234"))
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	next, cmd = m.Update(cmd())
	m = next.(Model)
	if !m.authorized {
		t.Fatalf("expected pin to be accepted")
	}
	if cmd == nil {
		t.Fatalf("expected a connect command after authorization")
	}
	cmd()
	if ctrl.lastCall() != "connect" {
		t.Fatalf("expected connect, got %q", ctrl.lastCall())
	}
}

func TestPushToTalkToggles(t *testing.T) {
	ctrl := &fakeController{authorized: true}
	m := newModel(ctrl)
	space := tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}

	m.handleEvent(events.NewTurnStateChanged("armed_manual", "manual", true))
	m = press(t, m, space)
	if ctrl.lastCall() != "start" {
		t.Fatalf("expected start, got %q", ctrl.lastCall())
	}

	m.handleEvent(events.NewTurnStateChanged("recording", "manual", true))
	m = press(t, m, space)
	if ctrl.lastCall() != "stop" {
		t.Fatalf("expected stop, got %q", ctrl.lastCall())
	}

	m.handleEvent(events.NewTurnStateChanged("armed_vad", "server_vad", false))
	press(t, m, space)
	if ctrl.lastCall() != "stop" {
		t.Fatalf("push-to-talk must be ignored while disabled, got %q", ctrl.lastCall())
	}
}

func TestToggleMode(t *testing.T) {
	ctrl := &fakeController{authorized: true}
	m := newModel(ctrl)

	m = press(t, m, runes("m"))
	if ctrl.lastCall() != "mode:server_vad" {
		t.Fatalf("expected switch to vad, got %q", ctrl.lastCall())
	}

	m.handleEvent(events.NewTurnStateChanged("armed_vad", "server_vad", false))
	press(t, m, runes("m"))
	if ctrl.lastCall() != "mode:manual" {
		t.Fatalf("expected switch to manual, got %q", ctrl.lastCall())
	}
}

func TestAnswerKeySubmitsOption(t *testing.T) {
	ctrl := &fakeController{
		authorized: true,
		quiz:       quiz.State{Question: &quiz.Question{QuizID: "q1", Question: "Capital of France?", Options: []string{"Rome", "Paris"}}},
	}
	m := newModel(ctrl)
	m.refresh()

	press(t, m, runes("2"))
	press(t, m, runes("7"))

	if len(ctrl.answers) != 1 || ctrl.answers[0] != "Paris" {
		t.Fatalf("expected a single Paris answer, got %v", ctrl.answers)
	}
}

func TestComposeSendsText(t *testing.T) {
	ctrl := &fakeController{authorized: true}
	m := newModel(ctrl)

	m = typeKeys(m, runes("i"), runes("next"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if ctrl.lastCall() != "text:next" {
		t.Fatalf("expected text to be sent, got %q", ctrl.lastCall())
	}
	if m.composing {
		t.Fatalf("expected compose mode to end")
	}
}

func TestDeleteLastItem(t *testing.T) {
	ctrl := &fakeController{authorized: true, items: []conversation.Item{{ID: "a"}, {ID: "b"}}}
	m := newModel(ctrl)
	m.refresh()

	press(t, m, runes("d"))
	if ctrl.lastCall() != "delete:b" {
		t.Fatalf("expected the last item to be deleted, got %q", ctrl.lastCall())
	}
}

func TestBridgeNeverBlocks(t *testing.T) {
	bridge := NewBridge()
	done := make(chan struct{})
	go func() {
		for range bridgeBufferSize + 10 {
			bridge.HandleEvent(events.NewSessionConnected())
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("bridge blocked on a full buffer")
	}
	if msg := bridge.wait()(); msg.(eventMsg).event.Kind() != events.KindSessionConnected {
		t.Fatalf("unexpected message %v", msg)
	}
}

func TestRenderEntry(t *testing.T) {
	entry := eventlog.Entry{Source: realtime.SourceServer, Type: "response.audio.delta", Count: 3, Payload: map[string]any{"delta": 1001}}

	line := renderEntry("00:01.50", entry, 80)
	for _, want := range []string{"00:01.50", "↓", "response.audio.delta", "(3)", `"delta":1001`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}

func TestRenderItem(t *testing.T) {
	call := conversation.Item{
		ID:        "fc_1",
		Type:      conversation.ItemFunctionCall,
		Status:    conversation.StatusCompleted,
		Formatted: conversation.Formatted{Tool: &conversation.ToolCall{Name: "check_answer", Arguments: `{"answer":"Paris"}`}},
	}
	if got := renderItem(call, 80); !strings.Contains(got, `check_answer({"answer":"Paris"})`) {
		t.Fatalf("unexpected tool rendering %q", got)
	}

	spoken := conversation.Item{
		Type:      conversation.ItemMessage,
		Role:      conversation.RoleUser,
		Status:    conversation.StatusCompleted,
		Formatted: conversation.Formatted{Audio: []byte{1, 2}, File: "/tmp/a.wav"},
	}
	got := renderItem(spoken, 80)
	if !strings.Contains(got, "(awaiting transcript)") || !strings.Contains(got, "/tmp/a.wav") {
		t.Fatalf("unexpected message rendering %q", got)
	}
}

func TestRenderLevels(t *testing.T) {
	if got := renderLevels([]float64{0, 1, 2, -1}); got != "▁██▁" {
		t.Fatalf("unexpected levels %q", got)
	}
}

func TestBridgeKeepsFailureWhenBufferIsFull(t *testing.T) {
	bridge := NewBridge()
	for range bridgeBufferSize + 10 {
		bridge.HandleEvent(events.NewSessionConnected())
	}
	bridge.HandleEvent(events.NewSessionFailed(errors.New("first")))
	bridge.HandleEvent(events.NewSessionFailed(errors.New("socket closed")))

	msg := bridge.wait()()
	failed, ok := msg.(eventMsg).event.(events.SessionFailed)
	if !ok {
		t.Fatalf("expected the failure to be delivered first, got %v", msg)
	}
	if failed.Err.Error() != "socket closed" {
		t.Fatalf("expected the newest failure, got %v", failed.Err)
	}
	if msg := bridge.wait()(); msg.(eventMsg).event.Kind() != events.KindSessionConnected {
		t.Fatalf("expected buffered events after the failure, got %v", msg)
	}
}
