package repository

import (
	"context"

	"github.com/edupulse/edupulse-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WatchEventRepository handles watch telemetry persistence. The table is
// append-only: every event is a new row, and the newest row per session id
// supersedes the previous ones. Nothing here deletes.
type WatchEventRepository struct {
	pool *pgxpool.Pool
}

// NewWatchEventRepository creates a new WatchEventRepository.
func NewWatchEventRepository(pool *pgxpool.Pool) *WatchEventRepository {
	return &WatchEventRepository{pool: pool}
}

// Insert appends one telemetry event.
func (r *WatchEventRepository) Insert(ctx context.Context, e *model.WatchEvent) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO watch_events
		   (session_id, question_id, result_id, video_ref,
		    watch_duration_seconds, total_duration_seconds, completion_percentage, event_type)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		e.SessionID, e.QuestionID, e.ResultID, e.VideoRef,
		e.WatchDurationSeconds, e.TotalDurationSeconds, e.CompletionPercentage, e.EventType,
	).Scan(&e.ID, &e.CreatedAt)
}

// GetLatestBySession retrieves the newest event for a watch session.
func (r *WatchEventRepository) GetLatestBySession(ctx context.Context, sessionID uuid.UUID) (*model.WatchEvent, error) {
	e := &model.WatchEvent{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, session_id, question_id, result_id, video_ref,
		        watch_duration_seconds, total_duration_seconds, completion_percentage,
		        event_type, created_at
		 FROM watch_events WHERE session_id = $1
		 ORDER BY id DESC LIMIT 1`, sessionID,
	).Scan(&e.ID, &e.SessionID, &e.QuestionID, &e.ResultID, &e.VideoRef,
		&e.WatchDurationSeconds, &e.TotalDurationSeconds, &e.CompletionPercentage,
		&e.EventType, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListByResult retrieves the newest event of every watch session linked to
// a result, so the review flow can show per-question engagement.
func (r *WatchEventRepository) ListByResult(ctx context.Context, resultID uuid.UUID) ([]model.WatchEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT ON (session_id)
		        id, session_id, question_id, result_id, video_ref,
		        watch_duration_seconds, total_duration_seconds, completion_percentage,
		        event_type, created_at
		 FROM watch_events WHERE result_id = $1
		 ORDER BY session_id, id DESC`, resultID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.WatchEvent
	for rows.Next() {
		var e model.WatchEvent
		if err := rows.Scan(&e.ID, &e.SessionID, &e.QuestionID, &e.ResultID, &e.VideoRef,
			&e.WatchDurationSeconds, &e.TotalDurationSeconds, &e.CompletionPercentage,
			&e.EventType, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
