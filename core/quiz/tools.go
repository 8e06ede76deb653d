package quiz

import (
	"context"
	"errors"

	"github.com/koscakluka/ema-quiz/core/tools"
)

type getQuestionArgs struct {
	Topic string `json:"topic" jsonschema_description:"The topic for the quiz question."`
}

type checkAnswerArgs struct {
	UserAnswer string `json:"user_answer" jsonschema_description:"The answer provided by the user."`
}

type setMemoryArgs struct {
	Key   string `json:"key" jsonschema_description:"The key of the memory value. Always use lowercase and underscores, no other characters."`
	Value string `json:"value" jsonschema_description:"Value can be anything represented as a string."`
}

type nextQuestionResult struct {
	Message string `json:"message"`
}

type setMemoryResult struct {
	OK bool `json:"ok"`
}

// Tools returns the quiz tool family bound to s. Failures are reported to the
// agent as {"error": ...} results so the conversation can continue.
func Tools(s *Session) []tools.Tool {
	return []tools.Tool{
		tools.New("get_quiz_question", "Fetches a quiz question based on a given topic.",
			func(ctx context.Context, args getQuestionArgs) (any, error) {
				q, err := s.FetchQuestion(ctx, args.Topic)
				if err != nil {
					logger.Error("failed to fetch quiz question", "topic", args.Topic, "error", err)
					return tools.Error{Error: "Failed to fetch quiz question."}, nil
				}
				return q, nil
			}),
		tools.New("check_answer", "Checks the user's answer against the correct answer.",
			func(ctx context.Context, args checkAnswerArgs) (any, error) {
				result, err := s.Check(ctx, args.UserAnswer)
				if errors.Is(err, ErrNoCurrentQuestion) {
					logger.Warn("check_answer called without a current question")
					return tools.Error{Error: "No current quiz question."}, nil
				} else if err != nil {
					logger.Error("failed to check answer", "error", err)
					return tools.Error{Error: "Failed to check answer."}, nil
				}
				return result, nil
			}),
		tools.New("next_question", "Moves to the next question in the quiz.",
			func(context.Context, struct{}) (any, error) {
				s.Next()
				return nextQuestionResult{Message: "Ready for the next question."}, nil
			}),
		tools.New("set_memory", "Saves important data about the user into memory.",
			func(_ context.Context, args setMemoryArgs) (any, error) {
				err := s.SetMemory(args.Key, args.Value)
				if errors.Is(err, ErrNotJSON) {
					logger.Warn("expected JSON for current_question", "value", args.Value)
					return tools.Error{Error: "Expected a JSON object for current_question."}, nil
				} else if err != nil {
					logger.Error("failed to set memory value", "key", args.Key, "error", err)
					return tools.Error{Error: "Failed to set memory value."}, nil
				}
				return setMemoryResult{OK: true}, nil
			}),
	}
}
