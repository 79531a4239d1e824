package service

import (
	"context"
	"encoding/json"

	"github.com/edupulse/edupulse-backend/internal/config"
	"github.com/edupulse/edupulse-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// TelemetryService enqueues watch telemetry for background persistence.
// Delivery is fire-and-forget: failures are logged and swallowed so
// engagement tracking can never interrupt the exam or review experience.
// No retry — the next heartbeat supersedes a lost one.
type TelemetryService struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewTelemetryService creates a new TelemetryService.
func NewTelemetryService(rdb *redis.Client, log zerolog.Logger) *TelemetryService {
	return &TelemetryService{
		rdb: rdb,
		log: log.With().Str("component", "telemetry_service").Logger(),
	}
}

// Emit pushes one watch event onto the persistence queue. It never returns
// an error; implements engagement.Emitter.
func (s *TelemetryService) Emit(ctx context.Context, event model.WatchEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.log.Error().Err(err).Msg("Marshal watch event")
		return
	}

	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistWatchEventsQueue, payload).Err(); err != nil {
		// Swallowed: telemetry must never surface to the user.
		s.log.Debug().Err(err).
			Str("session_id", event.SessionID.String()).
			Msg("Watch event enqueue failed, dropping")
	}
}
