package domain

type AnswerKind string

const (
	AnswerKindText    AnswerKind = "text"
	AnswerKindNumeric AnswerKind = "numeric"
	AnswerKindTime    AnswerKind = "time_of_day"
)

// RoundKindSharedGuess is the only round kind the engine plays: both
// teammates try to give the same answer.
const RoundKindSharedGuess = "shared_guess"

type Question struct {
	ID               string     `json:"id"`
	Text             string     `json:"text"`
	AnswerKind       AnswerKind `json:"answerKind"`
	RoundKind        string     `json:"roundKind"`
	Category         string     `json:"category,omitempty"`
	TimeLimitSeconds int        `json:"timeLimitSeconds"`
}
