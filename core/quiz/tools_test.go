package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/koscakluka/ema-quiz/core/tools"
)

func call(t *testing.T, d *tools.Dispatcher, name, arguments string) map[string]any {
	t.Helper()
	result, _ := d.Call(context.Background(), name, arguments)
	var decoded map[string]any
	if err := json.Unmarshal([]byte(result), &decoded); err != nil {
		t.Fatalf("%s returned invalid JSON %q: %v", name, result, err)
	}
	return decoded
}

func TestQuizToolScenario(t *testing.T) {
	backend := &fakeBackend{question: historyQuestion(), result: CheckResult{IsCorrect: true, Result: "Paris"}}
	s := NewSession(backend)
	d := tools.NewDispatcher(Tools(s)...)

	question := call(t, d, "get_quiz_question", `{"topic":"history"}`)
	if question["quizId"] != "q1" {
		t.Fatalf("unexpected question %v", question)
	}
	if _, ok := question["answer"]; ok {
		t.Fatalf("answer must not be sent to the agent")
	}

	result := call(t, d, "check_answer", `{"user_answer":"Paris"}`)
	if result["isCorrect"] != true {
		t.Fatalf("unexpected check result %v", result)
	}
	if state := s.State(); state.Score != 1 || state.Feedback != "Correct!" {
		t.Fatalf("unexpected state %+v", state)
	}

	backend.result = CheckResult{IsCorrect: false, Result: "Paris"}
	call(t, d, "check_answer", `{"user_answer":"Rome"}`)
	if state := s.State(); state.Score != 1 || state.Feedback != "Incorrect. The correct answer was Paris." {
		t.Fatalf("unexpected state %+v", state)
	}

	next := call(t, d, "next_question", `{}`)
	if next["message"] != "Ready for the next question." {
		t.Fatalf("unexpected next_question result %v", next)
	}
	if state := s.State(); state.Question != nil || state.Feedback != "" {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestQuizToolErrorsAreStructured(t *testing.T) {
	backend := &fakeBackend{fetchErr: errors.New("down"), checkErr: errors.New("down")}
	s := NewSession(backend)
	d := tools.NewDispatcher(Tools(s)...)

	if got := call(t, d, "get_quiz_question", `{"topic":"x"}`); got["error"] != "Failed to fetch quiz question." {
		t.Fatalf("unexpected result %v", got)
	}
	if got := call(t, d, "check_answer", `{"user_answer":"x"}`); got["error"] != "No current quiz question." {
		t.Fatalf("unexpected result %v", got)
	}

	s.SetMemory("current_question", `{"quizId":"q1","question":"?","options":[]}`)
	if got := call(t, d, "check_answer", `{"user_answer":"x"}`); got["error"] != "Failed to check answer." {
		t.Fatalf("unexpected result %v", got)
	}
	if got := call(t, d, "set_memory", `{"key":"current_question","value":"q1"}`); got["error"] != "Expected a JSON object for current_question." {
		t.Fatalf("unexpected result %v", got)
	}
	if got := call(t, d, "set_memory", `{"key":"current_question","value":"[1,2]"}`); got["error"] != "Failed to set memory value." {
		t.Fatalf("unexpected result %v", got)
	}
	if got := call(t, d, "set_memory", `{"key":"color","value":"blue"}`); got["ok"] != true {
		t.Fatalf("unexpected result %v", got)
	}
	if s.State().Score != 0 {
		t.Fatalf("score must not change on errors")
	}
}
