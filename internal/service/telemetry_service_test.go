package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/edupulse/edupulse-backend/internal/config"
	"github.com/edupulse/edupulse-backend/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitEnqueuesEvent(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	svc := NewTelemetryService(rdb, zerolog.Nop())

	resultID := uuid.New()
	event := model.WatchEvent{
		SessionID:            uuid.New(),
		QuestionID:           uuid.New(),
		ResultID:             &resultID,
		VideoRef:             "videos/explanations/q1.mp4",
		WatchDurationSeconds: 42,
		TotalDurationSeconds: 120,
		CompletionPercentage: 35,
		EventType:            model.WatchEventProgress,
	}

	svc.Emit(context.Background(), event)

	payload, err := rdb.LPop(context.Background(), config.WorkerKey.PersistWatchEventsQueue).Result()
	require.NoError(t, err)

	var got model.WatchEvent
	require.NoError(t, json.Unmarshal([]byte(payload), &got))
	assert.Equal(t, event, got)
}

func TestEmitPreservesQueueOrder(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	svc := NewTelemetryService(rdb, zerolog.Nop())
	sessionID := uuid.New()

	for _, et := range []model.WatchEventType{model.WatchEventStart, model.WatchEventProgress, model.WatchEventEnd} {
		svc.Emit(context.Background(), model.WatchEvent{SessionID: sessionID, QuestionID: uuid.New(), EventType: et})
	}

	for _, want := range []model.WatchEventType{model.WatchEventStart, model.WatchEventProgress, model.WatchEventEnd} {
		payload, err := rdb.LPop(context.Background(), config.WorkerKey.PersistWatchEventsQueue).Result()
		require.NoError(t, err)
		var got model.WatchEvent
		require.NoError(t, json.Unmarshal([]byte(payload), &got))
		assert.Equal(t, want, got.EventType)
	}
}

func TestEmitSwallowsEnqueueFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	svc := NewTelemetryService(rdb, zerolog.Nop())
	mr.Close()

	// Must not panic or surface anything to the caller.
	svc.Emit(context.Background(), model.WatchEvent{SessionID: uuid.New(), QuestionID: uuid.New()})
}
