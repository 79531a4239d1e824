package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/edupulse/edupulse-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memExams struct {
	exams map[uuid.UUID]*model.Exam
}

func (m *memExams) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e, ok := m.exams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

type memQuestions struct {
	byExam map[uuid.UUID][]model.Question
}

func (m *memQuestions) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	return m.byExam[examID], nil
}

// memResults mirrors the results table contract: the unique
// (student_id, exam_id) index turns a duplicate insert into pgx.ErrNoRows.
type memResults struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]*model.Result
	byPair map[string]uuid.UUID
	seq    int
}

func newMemResults() *memResults {
	return &memResults{
		byID:   make(map[uuid.UUID]*model.Result),
		byPair: make(map[string]uuid.UUID),
	}
}

func pairKey(studentID int, examID uuid.UUID) string {
	return fmt.Sprintf("%d:%s", studentID, examID)
}

func (m *memResults) Create(ctx context.Context, res *model.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := pairKey(res.StudentID, res.ExamID)
	if _, exists := m.byPair[key]; exists {
		return pgx.ErrNoRows
	}

	res.ID = uuid.New()
	m.seq++
	res.CreatedAt = time.Unix(int64(m.seq), 0)

	cp := *res
	m.byID[res.ID] = &cp
	m.byPair[key] = res.ID
	return nil
}

func (m *memResults) GetByID(ctx context.Context, id uuid.UUID) (*model.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *res
	return &cp, nil
}

func (m *memResults) GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*model.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byPair[pairKey(studentID, examID)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *m.byID[id]
	return &cp, nil
}

func (m *memResults) ListByStudent(ctx context.Context, studentID int) ([]model.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Result
	for _, res := range m.byID {
		if res.StudentID == studentID {
			out = append(out, *res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// seedExam creates an active exam with one question per correct label.
func seedExam(exams *memExams, questions *memQuestions, correct ...string) (*model.Exam, []model.Question) {
	exam := &model.Exam{
		ID:              uuid.New(),
		Title:           "Physics Midterm",
		DurationMinutes: 60,
		Status:          model.ExamStatusActive,
	}
	exams.exams[exam.ID] = exam

	qs := make([]model.Question, 0, len(correct))
	for i, label := range correct {
		qs = append(qs, model.Question{
			ID:            uuid.New(),
			ExamID:        exam.ID,
			Prompt:        fmt.Sprintf("Question %d", i+1),
			OptionA:       "option a",
			OptionB:       "option b",
			OptionC:       "option c",
			OptionD:       "option d",
			CorrectOption: label,
			OrderNum:      i + 1,
		})
	}
	questions.byExam[exam.ID] = qs
	return exam, qs
}

func newSubmissionRig() (*SubmissionService, *memExams, *memQuestions, *memResults) {
	exams := &memExams{exams: make(map[uuid.UUID]*model.Exam)}
	questions := &memQuestions{byExam: make(map[uuid.UUID][]model.Question)}
	results := newMemResults()
	svc := NewSubmissionService(exams, questions, results, zerolog.Nop())
	return svc, exams, questions, results
}

func TestSubmitGradesEveryQuestion(t *testing.T) {
	svc, exams, questions, _ := newSubmissionRig()
	exam, qs := seedExam(exams, questions, "A", "B", "C")

	// One correct, one wrong, one unanswered.
	answers := map[uuid.UUID]string{
		qs[0].ID: "A",
		qs[1].ID: "D",
	}

	result, err := svc.Submit(context.Background(), 7, exam.ID, answers)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalQuestions)
	assert.Equal(t, 1, result.CorrectCount)
	assert.Equal(t, 33.3, result.Score)

	require.Len(t, result.Breakdown, 3)
	assert.True(t, result.Breakdown[0].Correct)
	assert.True(t, result.Breakdown[0].Answered)
	assert.False(t, result.Breakdown[1].Correct)
	assert.Equal(t, "D", result.Breakdown[1].Chosen)
	assert.Equal(t, "B", result.Breakdown[1].CorrectOption)
	assert.False(t, result.Breakdown[2].Answered)
	assert.False(t, result.Breakdown[2].Correct)
	assert.Empty(t, result.Breakdown[2].Chosen)
}

func TestSubmitScoreBounds(t *testing.T) {
	svc, exams, questions, _ := newSubmissionRig()

	t.Run("all correct", func(t *testing.T) {
		exam, qs := seedExam(exams, questions, "A", "B")
		result, err := svc.Submit(context.Background(), 7, exam.ID, map[uuid.UUID]string{
			qs[0].ID: "A",
			qs[1].ID: "B",
		})
		require.NoError(t, err)
		assert.Equal(t, 100.0, result.Score)
	})

	t.Run("nothing answered", func(t *testing.T) {
		exam, _ := seedExam(exams, questions, "A", "B")
		result, err := svc.Submit(context.Background(), 7, exam.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, 0.0, result.Score)
		assert.Equal(t, 2, result.TotalQuestions)
	})

	t.Run("two thirds rounds to one decimal", func(t *testing.T) {
		exam, qs := seedExam(exams, questions, "A", "B", "C")
		result, err := svc.Submit(context.Background(), 7, exam.ID, map[uuid.UUID]string{
			qs[0].ID: "A",
			qs[1].ID: "B",
		})
		require.NoError(t, err)
		assert.Equal(t, 66.7, result.Score)
	})
}

func TestSubmitIgnoresForeignQuestionIDs(t *testing.T) {
	svc, exams, questions, _ := newSubmissionRig()
	exam, qs := seedExam(exams, questions, "A")

	result, err := svc.Submit(context.Background(), 7, exam.ID, map[uuid.UUID]string{
		qs[0].ID:   "A",
		uuid.New(): "B", // Not part of this exam
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalQuestions)
	assert.Equal(t, 100.0, result.Score)
}

func TestSubmitExamNotFound(t *testing.T) {
	svc, _, _, _ := newSubmissionRig()
	_, err := svc.Submit(context.Background(), 7, uuid.New(), nil)
	assert.ErrorIs(t, err, ErrExamNotFound)
}

func TestSubmitClosedExamRejected(t *testing.T) {
	svc, exams, questions, _ := newSubmissionRig()

	t.Run("inactive status", func(t *testing.T) {
		exam, _ := seedExam(exams, questions, "A")
		exams.exams[exam.ID].Status = model.ExamStatusInactive
		_, err := svc.Submit(context.Background(), 7, exam.ID, nil)
		assert.ErrorIs(t, err, ErrExamClosed)
	})

	t.Run("past close time", func(t *testing.T) {
		exam, _ := seedExam(exams, questions, "A")
		closed := time.Now().Add(-time.Hour)
		exams.exams[exam.ID].ClosesAt = &closed
		_, err := svc.Submit(context.Background(), 7, exam.ID, nil)
		assert.ErrorIs(t, err, ErrExamClosed)
	})

	t.Run("before open time", func(t *testing.T) {
		exam, _ := seedExam(exams, questions, "A")
		opens := time.Now().Add(time.Hour)
		exams.exams[exam.ID].OpensAt = &opens
		_, err := svc.Submit(context.Background(), 7, exam.ID, nil)
		assert.ErrorIs(t, err, ErrExamClosed)
	})
}

func TestSubmitEmptyExamRejected(t *testing.T) {
	svc, exams, questions, _ := newSubmissionRig()
	exam, _ := seedExam(exams, questions)

	_, err := svc.Submit(context.Background(), 7, exam.ID, nil)
	assert.ErrorIs(t, err, ErrNoQuestions)
}

func TestSubmitAtMostOnce(t *testing.T) {
	svc, exams, questions, _ := newSubmissionRig()
	exam, qs := seedExam(exams, questions, "A")

	first, err := svc.Submit(context.Background(), 7, exam.ID, map[uuid.UUID]string{qs[0].ID: "A"})
	require.NoError(t, err)

	// A retry with different answers changes nothing.
	_, err = svc.Submit(context.Background(), 7, exam.ID, map[uuid.UUID]string{qs[0].ID: "B"})
	assert.ErrorIs(t, err, ErrResultExists)

	stored, err := svc.GetResult(context.Background(), first.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 100.0, stored.Score)

	// A different student is unaffected.
	_, err = svc.Submit(context.Background(), 8, exam.ID, map[uuid.UUID]string{qs[0].ID: "A"})
	assert.NoError(t, err)
}

func TestSubmitRaceExactlyOneWins(t *testing.T) {
	svc, exams, questions, _ := newSubmissionRig()
	exam, qs := seedExam(exams, questions, "A")
	answers := map[uuid.UUID]string{qs[0].ID: "A"}

	// Manual submit racing the timeout-forced submit.
	const racers = 8
	errs := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(context.Background(), 7, exam.ID, answers)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var wins, duplicates int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case assert.ErrorIs(t, err, ErrResultExists):
			duplicates++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, racers-1, duplicates)
}

func TestGetResultScopedToOwner(t *testing.T) {
	svc, exams, questions, _ := newSubmissionRig()
	exam, qs := seedExam(exams, questions, "A")

	result, err := svc.Submit(context.Background(), 7, exam.ID, map[uuid.UUID]string{qs[0].ID: "A"})
	require.NoError(t, err)

	got, err := svc.GetResult(context.Background(), result.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, result.ID, got.ID)

	// Another student sees not-found, never forbidden.
	_, err = svc.GetResult(context.Background(), result.ID, 8)
	assert.ErrorIs(t, err, ErrResultNotFound)

	_, err = svc.GetResult(context.Background(), uuid.New(), 7)
	assert.ErrorIs(t, err, ErrResultNotFound)
}

func TestListResultsNewestFirst(t *testing.T) {
	svc, exams, questions, _ := newSubmissionRig()

	examA, qsA := seedExam(exams, questions, "A")
	examB, qsB := seedExam(exams, questions, "B")

	_, err := svc.Submit(context.Background(), 7, examA.ID, map[uuid.UUID]string{qsA[0].ID: "A"})
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), 7, examB.ID, map[uuid.UUID]string{qsB[0].ID: "C"})
	require.NoError(t, err)

	results, err := svc.ListResults(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, examB.ID, results[0].ExamID)
	assert.Equal(t, examA.ID, results[1].ExamID)

	other, err := svc.ListResults(context.Background(), 8)
	require.NoError(t, err)
	assert.Empty(t, other)
}
