// Package quiz holds the quiz session state and the tools the agent uses to
// run a quiz against the quiz content service.
package quiz

// Question is a quiz question as served by the quiz content service. Answer
// is only present when the service chooses to send it and never leaves this
// package through State or tool results.
type Question struct {
	QuizID   string   `json:"quizId"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer,omitempty"`
}

// Public returns the question without its answer.
func (q Question) Public() Question {
	q.Answer = ""
	q.Options = append([]string(nil), q.Options...)
	return q
}

// CheckResult is the verdict of the answer checking service. Result names the
// correct answer.
type CheckResult struct {
	IsCorrect bool   `json:"isCorrect"`
	Result    string `json:"result"`
}
