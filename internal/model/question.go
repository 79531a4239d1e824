package model

import (
	"github.com/google/uuid"
)

// Option labels for multiple-choice questions.
const (
	OptionA = "A"
	OptionB = "B"
	OptionC = "C"
	OptionD = "D"
)

// ValidOptionLabel reports whether label is one of the four answer labels.
func ValidOptionLabel(label string) bool {
	switch label {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// Question represents a single multiple-choice exam question with four
// labeled options and an optional explanation-video reference.
type Question struct {
	ID               uuid.UUID `json:"id"`
	ExamID           uuid.UUID `json:"exam_id"`
	Prompt           string    `json:"prompt"`
	OptionA          string    `json:"option_a"`
	OptionB          string    `json:"option_b"`
	OptionC          string    `json:"option_c"`
	OptionD          string    `json:"option_d"`
	CorrectOption    string    `json:"correct_option"`
	ExplanationVideo *string   `json:"explanation_video,omitempty"`
	OrderNum         int       `json:"order_num"`
}

// Options returns the four labeled option texts.
func (q *Question) Options() map[string]string {
	return map[string]string{
		OptionA: q.OptionA,
		OptionB: q.OptionB,
		OptionC: q.OptionC,
		OptionD: q.OptionD,
	}
}

// QuestionForStudent is a question without the correct answer, sent to students.
type QuestionForStudent struct {
	ID               uuid.UUID         `json:"id"`
	Prompt           string            `json:"prompt"`
	Options          map[string]string `json:"options"`
	ExplanationVideo *string           `json:"explanation_video,omitempty"`
	OrderNum         int               `json:"order_num"`
}

// ForStudent strips the correct label from a question.
func (q *Question) ForStudent() QuestionForStudent {
	return QuestionForStudent{
		ID:               q.ID,
		Prompt:           q.Prompt,
		Options:          q.Options(),
		ExplanationVideo: q.ExplanationVideo,
		OrderNum:         q.OrderNum,
	}
}
