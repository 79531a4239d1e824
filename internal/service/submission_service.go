package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/edupulse/edupulse-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type resultStore interface {
	Create(ctx context.Context, res *model.Result) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Result, error)
	GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*model.Result, error)
	ListByStudent(ctx context.Context, studentID int) ([]model.Result, error)
}

// SubmissionService is the server-side authority for finalizing attempts.
// It accepts a submission at most once per (student, exam) pair, grades it
// against the catalog's correct answers, and persists an immutable result.
type SubmissionService struct {
	exams     examGetter
	questions questionLister
	results   resultStore
	log       zerolog.Logger
	now       func() time.Time
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(exams examGetter, questions questionLister, results resultStore, log zerolog.Logger) *SubmissionService {
	return &SubmissionService{
		exams:     exams,
		questions: questions,
		results:   results,
		log:       log.With().Str("component", "submission_service").Logger(),
		now:       time.Now,
	}
}

// Submit grades the answer map against the exam's full question set and
// persists the result. Every question counts toward the total; an absent
// answer is graded incorrect, never exempt.
//
// The duplicate check is NOT a pre-check: the insert relies on the results
// table's unique (student_id, exam_id) index, so two racing submissions
// (manual retry vs. timeout auto-submit) serialize at the data store and
// exactly one wins.
func (s *SubmissionService) Submit(ctx context.Context, studentID int, examID uuid.UUID, answers map[uuid.UUID]string) (*model.Result, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}

	if !exam.OpenAt(s.now()) {
		return nil, ErrExamClosed
	}

	questions, err := s.questions.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	result := &model.Result{
		StudentID:      studentID,
		ExamID:         examID,
		TotalQuestions: len(questions),
		Breakdown:      make([]model.ResultItem, 0, len(questions)),
	}

	for i := range questions {
		q := &questions[i]
		chosen, answered := answers[q.ID]
		correct := answered && chosen == q.CorrectOption
		if correct {
			result.CorrectCount++
		}
		result.Breakdown = append(result.Breakdown, model.ResultItem{
			QuestionID:    q.ID,
			Prompt:        q.Prompt,
			Options:       q.Options(),
			Chosen:        chosen,
			Answered:      answered,
			Correct:       correct,
			CorrectOption: q.CorrectOption,
		})
	}

	result.Score = roundScore(100 * float64(result.CorrectCount) / float64(result.TotalQuestions))

	if err := s.results.Create(ctx, result); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Unique index refused the insert: a result already exists.
			return nil, ErrResultExists
		}
		return nil, fmt.Errorf("persist result: %w", err)
	}

	s.log.Info().
		Int("student_id", studentID).
		Str("exam_id", examID.String()).
		Int("correct", result.CorrectCount).
		Int("total", result.TotalQuestions).
		Float64("score", result.Score).
		Msg("Attempt graded")

	return result, nil
}

// GetResult retrieves a result with its full breakdown, scoped to the
// owning student.
func (s *SubmissionService) GetResult(ctx context.Context, resultID uuid.UUID, studentID int) (*model.Result, error) {
	res, err := s.results.GetByID(ctx, resultID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("get result: %w", err)
	}
	if res.StudentID != studentID {
		return nil, ErrResultNotFound
	}
	return res, nil
}

// ListResults retrieves all of a student's results, newest first.
func (s *SubmissionService) ListResults(ctx context.Context, studentID int) ([]model.Result, error) {
	return s.results.ListByStudent(ctx, studentID)
}

// roundScore rounds to one decimal of precision.
func roundScore(score float64) float64 {
	return math.Round(score*10) / 10
}
