// Package session drives a single exam attempt from load to submission
// under a wall-clock deadline. The controller is the only owner of the
// in-progress attempt: answer map, question cursor, and the countdown
// timer handle, all destroyed deterministically on teardown.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/edupulse/edupulse-backend/internal/model"
	"github.com/google/uuid"
)

// State is the single tagged state of an attempt. Illegal combinations
// (submitting while already completed, two in-flight submissions) are
// unrepresentable.
type State string

const (
	StateLoading          State = "LOADING"
	StateInProgress       State = "IN_PROGRESS"
	StateSubmitting       State = "SUBMITTING"
	StateCompleted        State = "COMPLETED"
	StateAlreadyCompleted State = "ALREADY_COMPLETED"
)

// Classification sentinels for submission failures. The submitter must
// wrap policy rejections with one of these; anything else is treated as
// transient and the attempt returns to IN_PROGRESS with answers intact.
var (
	// ErrAlreadySubmitted means the server already holds a result for this
	// (student, exam) pair. Terminal.
	ErrAlreadySubmitted = errors.New("a result already exists for this attempt")

	// ErrRejected is any other policy rejection (exam closed, no
	// questions). Terminal for the countdown but not retryable.
	ErrRejected = errors.New("submission rejected by policy")
)

// ExamSnapshot is what the controller needs from the catalog to run an
// attempt. When AlreadyAttempted is set the controller skips straight to
// ALREADY_COMPLETED without starting a timer.
type ExamSnapshot struct {
	ExamID           uuid.UUID
	Title            string
	DurationMinutes  int
	QuestionIDs      []uuid.UUID
	AlreadyAttempted bool
	ResultID         *uuid.UUID
	Score            *float64
}

// Catalog supplies exam snapshots. The catalog, not the controller, is the
// source of truth for the already-attempted check.
type Catalog interface {
	LoadExam(ctx context.Context, examID uuid.UUID, studentID int) (*ExamSnapshot, error)
}

// Submitter finalizes an attempt. It must observe the final answer map
// exactly once per successful call.
type Submitter interface {
	Submit(ctx context.Context, studentID int, examID uuid.UUID, answers map[uuid.UUID]string) (*model.Result, error)
}

// Store persists the attempt snapshot (answers, start time) so a reconnect
// resumes with the same deadline and captured answers.
type Store interface {
	// RecordStart stores startedAt for the attempt unless an earlier start
	// exists, and returns the authoritative start time (first writer wins).
	RecordStart(ctx context.Context, examID uuid.UUID, studentID int, startedAt time.Time) (time.Time, error)
	SaveAnswer(ctx context.Context, examID uuid.UUID, studentID int, questionID uuid.UUID, label string) error
	LoadAnswers(ctx context.Context, examID uuid.UUID, studentID int) (map[uuid.UUID]string, error)
	// Clear drops the snapshot once the attempt is finalized.
	Clear(ctx context.Context, examID uuid.UUID, studentID int) error
}

// Summary counts answered vs. unanswered questions for the submit
// confirmation step. Unanswered questions are graded incorrect, never
// exempt — the warning is advisory only.
type Summary struct {
	Answered   int `json:"answered"`
	Unanswered int `json:"unanswered"`
	Total      int `json:"total"`
}

// Events receives controller notifications. Implementations must not call
// back into the controller from within a callback.
type Events interface {
	OnState(state State, snapshot *ExamSnapshot)
	OnTick(remaining time.Duration)
	OnAnswerSaved(questionID uuid.UUID, answeredCount int)
	OnSubmitSummary(sum Summary)
	OnCompleted(result *model.Result)
	OnError(err error)
}
