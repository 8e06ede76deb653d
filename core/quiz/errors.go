package quiz

import "errors"

var (
	ErrNoCurrentQuestion  = errors.New("quiz: no current question")
	ErrSubmissionInFlight = errors.New("quiz: answer submission already in flight")
	ErrNotJSON            = errors.New("quiz: current_question must be a JSON object")
)

// ServiceError is an error reported in the body of a quiz service response.
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return "quiz: service error: " + e.Message
}
