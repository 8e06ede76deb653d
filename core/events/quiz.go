package events

import "github.com/koscakluka/ema-quiz/core/quiz"

// KindQuizUpdated identifies a quiz state change.
const KindQuizUpdated Kind = "quiz.updated"

type QuizUpdated struct {
	Base
	State quiz.State
}

func NewQuizUpdated(state quiz.State) QuizUpdated {
	return QuizUpdated{Base: NewBase(KindQuizUpdated), State: state}
}
