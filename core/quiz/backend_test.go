package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPBackendFetchQuestion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/getQuiz" || r.URL.Query().Get("topic") != "world history" {
			t.Errorf("unexpected request %s", r.URL)
		}
		w.Write([]byte(`{"quizId":"q1","question":"Capital of France?","options":["Paris","Rome"],"answer":"Paris"}`))
	}))
	defer server.Close()

	b := NewHTTPBackend(WithBaseURL(server.URL+"/"), WithHTTPClient(server.Client()))
	q, err := b.FetchQuestion(context.Background(), "world history")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if q.QuizID != "q1" || len(q.Options) != 2 || q.Answer != "Paris" {
		t.Fatalf("unexpected question %+v", q)
	}
}

func TestHTTPBackendReportsServiceErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"unknown topic"}`))
	}))
	defer server.Close()

	b := NewHTTPBackend(WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	_, err := b.FetchQuestion(context.Background(), "nothing")

	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) || serviceErr.Message != "unknown topic" {
		t.Fatalf("expected service error, got %v", err)
	}
}

func TestHTTPBackendCheckAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/checkAnswers" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("invalid body: %v", err)
		}
		if body["user_answer"] != "Rome" || body["quizId"] != "q1" {
			t.Errorf("unexpected body %v", body)
		}
		w.Write([]byte(`{"isCorrect":false,"result":"Paris"}`))
	}))
	defer server.Close()

	b := NewHTTPBackend(WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	result, err := b.CheckAnswer(context.Background(), "q1", "Rome")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if result.IsCorrect || result.Result != "Paris" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestHTTPBackendNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	b := NewHTTPBackend(WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	if _, err := b.CheckAnswer(context.Background(), "q1", "x"); err == nil {
		t.Fatalf("expected error on non-OK status")
	}
}
