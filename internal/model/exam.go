package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusDraft    ExamStatus = "DRAFT"
	ExamStatusActive   ExamStatus = "ACTIVE"
	ExamStatusInactive ExamStatus = "INACTIVE"
)

// Exam represents an exam entity. The question set is immutable once a
// student has an in-progress or completed attempt against it.
type Exam struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          ExamStatus `json:"status"`
	OpensAt         *time.Time `json:"opens_at,omitempty"`
	ClosesAt        *time.Time `json:"closes_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// OpenAt reports whether the exam accepts submissions at the given instant.
// Nil bounds are unbounded.
func (e *Exam) OpenAt(now time.Time) bool {
	if e.Status != ExamStatusActive {
		return false
	}
	if e.OpensAt != nil && now.Before(*e.OpensAt) {
		return false
	}
	if e.ClosesAt != nil && now.After(*e.ClosesAt) {
		return false
	}
	return true
}

// ExamPaper is the exam payload sent to students (no correct answers).
type ExamPaper struct {
	ExamID           uuid.UUID            `json:"exam_id"`
	Title            string               `json:"title"`
	DurationMinutes  int                  `json:"duration_minutes"`
	Questions        []QuestionForStudent `json:"questions"`
	AlreadyAttempted bool                 `json:"already_attempted"`
	ResultID         *uuid.UUID           `json:"result_id,omitempty"`
	Score            *float64             `json:"score,omitempty"`
}
