package quiz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const DefaultBaseURL = "https://quizshow.ference.ai/api"

// Backend is the quiz content service: it serves questions and judges
// answers. The client never judges correctness itself.
type Backend interface {
	FetchQuestion(ctx context.Context, topic string) (Question, error)
	CheckAnswer(ctx context.Context, quizID, answer string) (CheckResult, error)
}

type HTTPBackend struct {
	baseURL string
	client  *http.Client
}

type HTTPBackendOption func(*HTTPBackend)

func NewHTTPBackend(opts ...HTTPBackendOption) *HTTPBackend {
	b := &HTTPBackend{
		baseURL: DefaultBaseURL,
		client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func WithBaseURL(baseURL string) HTTPBackendOption {
	return func(b *HTTPBackend) {
		if baseURL != "" {
			b.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithHTTPClient(client *http.Client) HTTPBackendOption {
	return func(b *HTTPBackend) { b.client = client }
}

func (b *HTTPBackend) FetchQuestion(ctx context.Context, topic string) (q Question, err error) {
	ctx, span := tracer.Start(ctx, "fetch quiz question")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to fetch quiz question")
		}
		span.End()
	}()
	span.SetAttributes(attribute.String("quiz.topic", topic))

	endpoint := b.baseURL + "/getQuiz?topic=" + url.QueryEscape(topic)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Question{}, fmt.Errorf("failed to create request: %w", err)
	}

	var body struct {
		Question
		Error string `json:"error"`
	}
	if err := b.do(req, &body); err != nil {
		return Question{}, err
	}
	if body.Error != "" {
		return Question{}, &ServiceError{Message: body.Error}
	}
	return body.Question, nil
}

func (b *HTTPBackend) CheckAnswer(ctx context.Context, quizID, answer string) (result CheckResult, err error) {
	ctx, span := tracer.Start(ctx, "check quiz answer")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to check quiz answer")
		}
		span.End()
	}()
	span.SetAttributes(attribute.String("quiz.id", quizID))

	payload, err := json.Marshal(struct {
		UserAnswer string `json:"user_answer"`
		QuizID     string `json:"quizId"`
	}{UserAnswer: answer, QuizID: quizID})
	if err != nil {
		return CheckResult{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/checkAnswers", bytes.NewReader(payload))
	if err != nil {
		return CheckResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var body struct {
		CheckResult
		Error string `json:"error"`
	}
	if err := b.do(req, &body); err != nil {
		return CheckResult{}, err
	}
	if body.Error != "" {
		return CheckResult{}, &ServiceError{Message: body.Error}
	}
	return body.CheckResult, nil
}

func (b *HTTPBackend) do(req *http.Request, out any) error {
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var failure struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &failure) == nil && failure.Error != "" {
			return &ServiceError{Message: failure.Error}
		}
		return &ServiceError{Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
