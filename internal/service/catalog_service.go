package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/edupulse/edupulse-backend/internal/model"
	"github.com/edupulse/edupulse-backend/internal/session"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type examGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
}

type questionLister interface {
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error)
}

type resultReader interface {
	GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*model.Result, error)
}

// CatalogService serves exam papers to students. It also backs the session
// controller's pre-flight load: the already-attempted flag comes from the
// results table, because only the server can guarantee at-most-once.
type CatalogService struct {
	exams     examGetter
	questions questionLister
	results   resultReader
	log       zerolog.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(exams examGetter, questions questionLister, results resultReader, log zerolog.Logger) *CatalogService {
	return &CatalogService{
		exams:     exams,
		questions: questions,
		results:   results,
		log:       log.With().Str("component", "catalog_service").Logger(),
	}
}

// GetExamPaper returns the exam payload for a student: metadata and the
// ordered question set without correct labels, plus the stored score when
// the student already has a result.
func (s *CatalogService) GetExamPaper(ctx context.Context, examID uuid.UUID, studentID int) (*model.ExamPaper, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}

	if exam.Status == model.ExamStatusDraft {
		return nil, ErrExamNotFound // Drafts are invisible to students
	}

	questions, err := s.questions.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	paper := &model.ExamPaper{
		ExamID:          exam.ID,
		Title:           exam.Title,
		DurationMinutes: exam.DurationMinutes,
		Questions:       make([]model.QuestionForStudent, 0, len(questions)),
	}
	for i := range questions {
		paper.Questions = append(paper.Questions, questions[i].ForStudent())
	}

	existing, err := s.results.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check existing result: %w", err)
	}
	if existing != nil {
		paper.AlreadyAttempted = true
		paper.ResultID = &existing.ID
		paper.Score = &existing.Score
	}

	return paper, nil
}

// LoadExam implements session.Catalog: the snapshot the session controller
// needs to run an attempt.
func (s *CatalogService) LoadExam(ctx context.Context, examID uuid.UUID, studentID int) (*session.ExamSnapshot, error) {
	paper, err := s.GetExamPaper(ctx, examID, studentID)
	if err != nil {
		return nil, err
	}

	snap := &session.ExamSnapshot{
		ExamID:           paper.ExamID,
		Title:            paper.Title,
		DurationMinutes:  paper.DurationMinutes,
		QuestionIDs:      make([]uuid.UUID, 0, len(paper.Questions)),
		AlreadyAttempted: paper.AlreadyAttempted,
		ResultID:         paper.ResultID,
		Score:            paper.Score,
	}
	for i := range paper.Questions {
		snap.QuestionIDs = append(snap.QuestionIDs, paper.Questions[i].ID)
	}
	return snap, nil
}
