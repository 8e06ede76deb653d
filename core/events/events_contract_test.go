package events

import (
	"errors"
	"testing"

	"github.com/koscakluka/ema-quiz/core/conversation"
	"github.com/koscakluka/ema-quiz/core/eventlog"
	"github.com/koscakluka/ema-quiz/core/quiz"
)

func TestConstructorsEmitExpectedKinds(t *testing.T) {
	testCases := []struct {
		name     string
		event    Event
		expected Kind
	}{
		{name: "event logged", event: NewEventLogged(eventlog.Entry{}), expected: KindEventLogged},
		{name: "event log merged", event: NewEventLogMerged(eventlog.Entry{}), expected: KindEventLogMerged},
		{name: "conversation updated", event: NewConversationUpdated(conversation.Item{}, nil), expected: KindConversationUpdated},
		{name: "conversation item deleted", event: NewConversationItemDeleted("item"), expected: KindConversationItemDeleted},
		{name: "conversation interrupted", event: NewConversationInterrupted("item", 10), expected: KindConversationInterrupted},
		{name: "tool call started", event: NewToolCallStarted("call", "tool", "{}"), expected: KindToolCallStarted},
		{name: "tool call completed", event: NewToolCallCompleted("call", "tool", "{}"), expected: KindToolCallCompleted},
		{name: "tool call failed", event: NewToolCallFailed("call", "tool", "boom"), expected: KindToolCallFailed},
		{name: "quiz updated", event: NewQuizUpdated(quiz.State{}), expected: KindQuizUpdated},
		{name: "turn state changed", event: NewTurnStateChanged("idle", "manual", false), expected: KindTurnStateChanged},
		{name: "session connected", event: NewSessionConnected(), expected: KindSessionConnected},
		{name: "session disconnected", event: NewSessionDisconnected(), expected: KindSessionDisconnected},
		{name: "session failed", event: NewSessionFailed(errors.New("boom")), expected: KindSessionFailed},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.event.Kind(); got != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, got)
			}
			if testCase.event.Timestamp().IsZero() {
				t.Fatalf("expected timestamp to be set")
			}
		})
	}
}
