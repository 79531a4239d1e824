package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/edupulse/edupulse-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ResultRepository handles result data access. The results table carries a
// UNIQUE (student_id, exam_id) index; Create relies on it so the
// check-then-insert race between a manual submit and the timeout
// auto-submit is closed at the data store, not by a pre-check.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Create inserts a result. On a (student_id, exam_id) conflict no row is
// inserted and pgx.ErrNoRows is returned from the RETURNING scan — the
// caller maps that to its duplicate-submission error.
func (r *ResultRepository) Create(ctx context.Context, res *model.Result) error {
	breakdown, err := json.Marshal(res.Breakdown)
	if err != nil {
		return fmt.Errorf("marshal breakdown: %w", err)
	}

	return r.pool.QueryRow(ctx,
		`INSERT INTO results (student_id, exam_id, total_questions, correct_count, score, breakdown)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (student_id, exam_id) DO NOTHING
		 RETURNING id, created_at`,
		res.StudentID, res.ExamID, res.TotalQuestions, res.CorrectCount, res.Score, breakdown,
	).Scan(&res.ID, &res.CreatedAt)
}

// GetByID retrieves a result with its full breakdown.
func (r *ResultRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Result, error) {
	res := &model.Result{}
	var breakdown []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, student_id, exam_id, total_questions, correct_count, score, breakdown, created_at
		 FROM results WHERE id = $1`, id,
	).Scan(&res.ID, &res.StudentID, &res.ExamID, &res.TotalQuestions,
		&res.CorrectCount, &res.Score, &breakdown, &res.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(breakdown, &res.Breakdown); err != nil {
		return nil, fmt.Errorf("unmarshal breakdown: %w", err)
	}
	return res, nil
}

// GetByExamAndStudent retrieves the result for a (student, exam) pair.
func (r *ResultRepository) GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*model.Result, error) {
	res := &model.Result{}
	var breakdown []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, student_id, exam_id, total_questions, correct_count, score, breakdown, created_at
		 FROM results WHERE exam_id = $1 AND student_id = $2`, examID, studentID,
	).Scan(&res.ID, &res.StudentID, &res.ExamID, &res.TotalQuestions,
		&res.CorrectCount, &res.Score, &breakdown, &res.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(breakdown, &res.Breakdown); err != nil {
		return nil, fmt.Errorf("unmarshal breakdown: %w", err)
	}
	return res, nil
}

// ListByStudent retrieves all results for a student, newest first.
// Breakdowns are omitted — the listing view only needs scores.
func (r *ResultRepository) ListByStudent(ctx context.Context, studentID int) ([]model.Result, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, student_id, exam_id, total_questions, correct_count, score, created_at
		 FROM results WHERE student_id = $1
		 ORDER BY created_at DESC`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		var res model.Result
		if err := rows.Scan(&res.ID, &res.StudentID, &res.ExamID,
			&res.TotalQuestions, &res.CorrectCount, &res.Score, &res.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
