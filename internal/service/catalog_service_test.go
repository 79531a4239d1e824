package service

import (
	"context"
	"testing"

	"github.com/edupulse/edupulse-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalogRig() (*CatalogService, *memExams, *memQuestions, *memResults) {
	exams := &memExams{exams: make(map[uuid.UUID]*model.Exam)}
	questions := &memQuestions{byExam: make(map[uuid.UUID][]model.Question)}
	results := newMemResults()
	svc := NewCatalogService(exams, questions, results, zerolog.Nop())
	return svc, exams, questions, results
}

func TestGetExamPaperHidesCorrectAnswers(t *testing.T) {
	svc, exams, questions, _ := newCatalogRig()
	exam, qs := seedExam(exams, questions, "A", "C")

	paper, err := svc.GetExamPaper(context.Background(), exam.ID, 7)
	require.NoError(t, err)

	assert.Equal(t, exam.ID, paper.ExamID)
	assert.Equal(t, exam.Title, paper.Title)
	assert.Equal(t, 60, paper.DurationMinutes)
	assert.False(t, paper.AlreadyAttempted)
	assert.Nil(t, paper.ResultID)

	require.Len(t, paper.Questions, 2)
	for i, q := range paper.Questions {
		assert.Equal(t, qs[i].ID, q.ID)
		assert.Len(t, q.Options, 4)
	}
}

func TestGetExamPaperDraftInvisible(t *testing.T) {
	svc, exams, questions, _ := newCatalogRig()
	exam, _ := seedExam(exams, questions, "A")
	exams.exams[exam.ID].Status = model.ExamStatusDraft

	_, err := svc.GetExamPaper(context.Background(), exam.ID, 7)
	assert.ErrorIs(t, err, ErrExamNotFound)
}

func TestGetExamPaperUnknownExam(t *testing.T) {
	svc, _, _, _ := newCatalogRig()
	_, err := svc.GetExamPaper(context.Background(), uuid.New(), 7)
	assert.ErrorIs(t, err, ErrExamNotFound)
}

func TestGetExamPaperMarksAttempted(t *testing.T) {
	svc, exams, questions, results := newCatalogRig()
	exam, _ := seedExam(exams, questions, "A")

	res := &model.Result{StudentID: 7, ExamID: exam.ID, TotalQuestions: 1, CorrectCount: 1, Score: 100}
	require.NoError(t, results.Create(context.Background(), res))

	paper, err := svc.GetExamPaper(context.Background(), exam.ID, 7)
	require.NoError(t, err)
	assert.True(t, paper.AlreadyAttempted)
	require.NotNil(t, paper.ResultID)
	assert.Equal(t, res.ID, *paper.ResultID)
	require.NotNil(t, paper.Score)
	assert.Equal(t, 100.0, *paper.Score)

	// A different student still sees a fresh paper.
	other, err := svc.GetExamPaper(context.Background(), exam.ID, 8)
	require.NoError(t, err)
	assert.False(t, other.AlreadyAttempted)
}

func TestLoadExamSnapshotKeepsQuestionOrder(t *testing.T) {
	svc, exams, questions, _ := newCatalogRig()
	exam, qs := seedExam(exams, questions, "A", "B", "C", "D")

	snap, err := svc.LoadExam(context.Background(), exam.ID, 7)
	require.NoError(t, err)

	require.Len(t, snap.QuestionIDs, 4)
	for i := range qs {
		assert.Equal(t, qs[i].ID, snap.QuestionIDs[i])
	}
	assert.Equal(t, exam.ID, snap.ExamID)
	assert.False(t, snap.AlreadyAttempted)
}
