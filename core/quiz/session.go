package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	MemoryKeyCurrentQuestion = "current_question"

	FeedbackCorrect = "Correct!"
	FeedbackError   = "There was an error processing your answer."
)

func feedbackIncorrect(correct string) string {
	return fmt.Sprintf("Incorrect. The correct answer was %s.", correct)
}

// State is a read-only view of the session.
type State struct {
	Question           *Question
	Score              int
	Feedback           string
	SubmissionInFlight bool
}

// Session is the single owner of the current question, the score and the
// memory store. Both the agent tools and the answer widget go through it, so
// there is one scoring rule.
type Session struct {
	backend Backend

	mu                 sync.Mutex
	current            *Question
	score              int
	feedback           string
	submissionInFlight bool
	memory             map[string]string
}

func NewSession(backend Backend) *Session {
	return &Session{backend: backend, memory: map[string]string{}}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := State{
		Score:              s.score,
		Feedback:           s.feedback,
		SubmissionInFlight: s.submissionInFlight,
	}
	if s.current != nil {
		q := s.current.Public()
		state.Question = &q
	}
	return state
}

// Memory returns a copy of the memory store.
func (s *Session) Memory() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.memory)
}

// ClearMemory empties the memory store. Score and question are kept.
func (s *Session) ClearMemory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memory = map[string]string{}
}

// FetchQuestion asks the quiz service for a question on topic and makes it
// the current one.
func (s *Session) FetchQuestion(ctx context.Context, topic string) (Question, error) {
	q, err := s.backend.FetchQuestion(ctx, topic)
	if err != nil {
		return Question{}, err
	}

	s.mu.Lock()
	s.current = &q
	s.mu.Unlock()
	return q.Public(), nil
}

// Next drops the current question and its feedback.
func (s *Session) Next() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.feedback = ""
}

// SetMemory stores value under key. The current_question key must hold a
// question as JSON; on failure neither the memory nor the current question
// change.
func (s *Session) SetMemory(key, value string) error {
	if key == MemoryKeyCurrentQuestion {
		trimmed := strings.TrimSpace(value)
		if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
			return ErrNotJSON
		}

		var q Question
		if err := json.Unmarshal([]byte(trimmed), &q); err != nil {
			return fmt.Errorf("failed to parse current_question: %w", err)
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		s.current = &q
		s.memory[key] = value
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.memory[key] = value
	return nil
}

// Check verifies answer for the current question. Every call performs a
// remote check.
func (s *Session) Check(ctx context.Context, answer string) (CheckResult, error) {
	s.mu.Lock()
	current := s.current
	s.mu.Unlock()

	if current == nil {
		return CheckResult{}, ErrNoCurrentQuestion
	}
	return s.check(ctx, current.QuizID, answer)
}

// Submit is the answer path of the quiz widget. Only one submission may be
// outstanding at a time.
func (s *Session) Submit(ctx context.Context, answer string) (CheckResult, error) {
	submission, err := s.Begin()
	if err != nil {
		return CheckResult{}, err
	}
	return submission.Check(ctx, answer)
}

// Submission is a reserved answer slot. Until Check returns, every other
// Begin fails with ErrSubmissionInFlight.
type Submission struct {
	session *Session
	quizID  string
}

// Begin reserves the answer slot for the current question.
func (s *Session) Begin() (*Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil, ErrNoCurrentQuestion
	}
	if s.submissionInFlight {
		return nil, ErrSubmissionInFlight
	}
	s.submissionInFlight = true
	return &Submission{session: s, quizID: s.current.QuizID}, nil
}

// Check verifies answer and releases the slot.
func (sub *Submission) Check(ctx context.Context, answer string) (result CheckResult, err error) {
	ctx, span := tracer.Start(ctx, "submit answer")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to submit answer")
		}
		span.End()
	}()

	s := sub.session
	defer func() {
		s.mu.Lock()
		s.submissionInFlight = false
		s.mu.Unlock()
	}()

	return s.check(ctx, sub.quizID, answer)
}

func (s *Session) check(ctx context.Context, quizID, answer string) (CheckResult, error) {
	ctx, span := tracer.Start(ctx, "check answer")
	defer span.End()
	span.SetAttributes(attribute.String("quiz.id", quizID))

	result, err := s.backend.CheckAnswer(ctx, quizID, answer)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to check answer")
		s.feedback = FeedbackError
		return CheckResult{}, err
	}

	if result.IsCorrect {
		s.score++
		s.feedback = FeedbackCorrect
	} else {
		s.feedback = feedbackIncorrect(result.Result)
	}
	span.SetAttributes(attribute.Bool("quiz.correct", result.IsCorrect))
	return result, nil
}

// Reset clears the whole session, score included.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	s.score = 0
	s.feedback = ""
	s.submissionInFlight = false
	s.memory = map[string]string{}
}
