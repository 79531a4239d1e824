package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/edupulse/edupulse-backend/internal/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore persists attempt snapshots in Redis: an answers hash and the
// attempt start timestamp. The start key is written with SETNX so the
// first writer wins — a reconnect or second device always resumes the
// original deadline instead of minting a fresh one.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a Redis-backed attempt store.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

var _ Store = (*RedisStore)(nil)

// RecordStart stores startedAt unless a start already exists, and returns
// the authoritative start time.
func (s *RedisStore) RecordStart(ctx context.Context, examID uuid.UUID, studentID int, startedAt time.Time) (time.Time, error) {
	key := config.CacheKey.AttemptStartKey(examID.String(), studentID)

	ok, err := s.rdb.SetNX(ctx, key, startedAt.Unix(), 0).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("record start: %w", err)
	}
	if ok {
		return startedAt, nil
	}

	val, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("read start: %w", err)
	}
	unix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start time format in cache: %w", err)
	}
	return time.Unix(unix, 0), nil
}

// SaveAnswer upserts one answer into the attempt's hash.
func (s *RedisStore) SaveAnswer(ctx context.Context, examID uuid.UUID, studentID int, questionID uuid.UUID, label string) error {
	key := config.CacheKey.AttemptAnswersKey(examID.String(), studentID)
	return s.rdb.HSet(ctx, key, questionID.String(), label).Err()
}

// LoadAnswers retrieves the persisted answer map. Entries with malformed
// question ids are skipped rather than failing recovery.
func (s *RedisStore) LoadAnswers(ctx context.Context, examID uuid.UUID, studentID int) (map[uuid.UUID]string, error) {
	key := config.CacheKey.AttemptAnswersKey(examID.String(), studentID)
	raw, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}

	answers := make(map[uuid.UUID]string, len(raw))
	for field, label := range raw {
		qid, err := uuid.Parse(field)
		if err != nil {
			continue
		}
		answers[qid] = label
	}
	return answers, nil
}

// Clear drops the snapshot keys once the attempt is finalized.
func (s *RedisStore) Clear(ctx context.Context, examID uuid.UUID, studentID int) error {
	return s.rdb.Del(ctx,
		config.CacheKey.AttemptAnswersKey(examID.String(), studentID),
		config.CacheKey.AttemptStartKey(examID.String(), studentID),
	).Err()
}
