package model

import (
	"time"

	"github.com/google/uuid"
)

// Result is the immutable, server-authoritative record of a graded attempt.
// At most one Result exists per (student, exam) pair; the uniqueness is
// enforced by the results table's unique index, not by application checks.
type Result struct {
	ID             uuid.UUID    `json:"id"`
	StudentID      int          `json:"student_id"`
	ExamID         uuid.UUID    `json:"exam_id"`
	TotalQuestions int          `json:"total_questions"`
	CorrectCount   int          `json:"correct_count"`
	Score          float64      `json:"score"`
	Breakdown      []ResultItem `json:"breakdown"`
	CreatedAt      time.Time    `json:"created_at"`
}

// ResultItem is one entry of the per-question breakdown. Prompt and option
// texts are snapshotted at grading time so the review flow renders the
// original wording even if the catalog changes later.
type ResultItem struct {
	QuestionID    uuid.UUID         `json:"question_id"`
	Prompt        string            `json:"prompt"`
	Options       map[string]string `json:"options"`
	Chosen        string            `json:"chosen"` // Empty string means unanswered
	Answered      bool              `json:"answered"`
	Correct       bool              `json:"correct"`
	CorrectOption string            `json:"correct_option"`
}

// SubmitRequest is the payload for finalizing an attempt.
type SubmitRequest struct {
	// Answers maps question id → chosen option label (A–D). Keys are a
	// subset of the exam's question ids; absence means unanswered.
	Answers map[uuid.UUID]string `json:"answers" binding:"required"`
}
