// Package worker hosts background consumers that drain Redis queues into
// Postgres. Workers run for the lifetime of the process and drain their
// queue on shutdown.
package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/edupulse/edupulse-backend/internal/config"
	"github.com/edupulse/edupulse-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type watchEventInserter interface {
	Insert(ctx context.Context, e *model.WatchEvent) error
}

// TelemetryWorker consumes the watch-event queue and persists events as
// append-only rows. Persistence is decoupled from ingestion so a slow or
// unavailable database never backs up into the player surfaces.
type TelemetryWorker struct {
	rdb    *redis.Client
	events watchEventInserter
	log    zerolog.Logger
}

// NewTelemetryWorker creates a new TelemetryWorker.
func NewTelemetryWorker(rdb *redis.Client, events watchEventInserter, log zerolog.Logger) *TelemetryWorker {
	return &TelemetryWorker{
		rdb:    rdb,
		events: events,
		log:    log.With().Str("component", "telemetry_worker").Logger(),
	}
}

// Run blocks until ctx is cancelled, then drains whatever is left on the
// queue before returning.
func (w *TelemetryWorker) Run(ctx context.Context) {
	w.log.Info().Msg("Telemetry worker started")

	for {
		select {
		case <-ctx.Done():
			w.drain()
			w.log.Info().Msg("Telemetry worker stopped")
			return
		default:
		}

		vals, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.PersistWatchEventsQueue).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			w.log.Error().Err(err).Msg("Queue pop failed")
			time.Sleep(time.Second)
			continue
		}

		// BLPop returns [key, value].
		if len(vals) != 2 {
			continue
		}
		w.process(ctx, vals[1])
	}
}

// process persists one queued event. A failed insert requeues the payload
// at the tail with a short backoff; a malformed payload is dropped.
func (w *TelemetryWorker) process(ctx context.Context, payload string) {
	var event model.WatchEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		w.log.Error().Err(err).Msg("Malformed watch event payload, dropping")
		return
	}

	if err := w.events.Insert(ctx, &event); err != nil {
		w.log.Warn().Err(err).
			Str("session_id", event.SessionID.String()).
			Msg("Watch event persist failed, requeueing")
		if err := w.rdb.RPush(ctx, config.WorkerKey.PersistWatchEventsQueue, payload).Err(); err != nil {
			w.log.Error().Err(err).Msg("Watch event requeue failed, event lost")
		}
		time.Sleep(time.Second)
	}
}

// drain flushes the remaining queue with a short-lived context so shutdown
// cannot hang on a dead database.
func (w *TelemetryWorker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for {
		payload, err := w.rdb.LPop(ctx, config.WorkerKey.PersistWatchEventsQueue).Result()
		if err != nil {
			if err != redis.Nil {
				w.log.Warn().Err(err).Msg("Drain stopped early")
			}
			return
		}

		var event model.WatchEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			w.log.Error().Err(err).Msg("Malformed watch event payload, dropping")
			continue
		}
		if err := w.events.Insert(ctx, &event); err != nil {
			w.log.Warn().Err(err).Msg("Drain persist failed, event lost")
		}
	}
}
