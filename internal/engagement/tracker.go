// Package engagement measures how much of a linked explanation video a
// student actually watches. Each player instantiation gets its own watch
// session and tracker; telemetry leaves as a lazy, append-only event
// stream that never blocks or degrades playback.
package engagement

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edupulse/edupulse-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// HeartbeatInterval is how often progress telemetry is emitted while
	// the video is playing.
	HeartbeatInterval = 10 * time.Second

	// FlushMinInterval rate-limits the flush on pause/buffer transitions
	// so rapid pause/resume cannot cause event storms.
	FlushMinInterval = 5 * time.Second
)

// State is the lifecycle of one watch session.
type State string

const (
	StateNotStarted State = "NOT_STARTED"
	StatePlaying    State = "PLAYING"
	StatePaused     State = "PAUSED"
	StateEnded      State = "ENDED"
)

// Emitter delivers telemetry. Implementations must be fire-and-forget:
// no error return, no retries — a lost event is superseded by the next
// heartbeat.
type Emitter interface {
	Emit(ctx context.Context, event model.WatchEvent)
}

// Config wires a tracker to one playback surface.
type Config struct {
	QuestionID           uuid.UUID
	ResultID             *uuid.UUID // Nil when viewed outside a graded context
	VideoRef             string
	TotalDurationSeconds float64
	Emitter              Emitter
	Clock                clock.Clock // Nil defaults to the wall clock
	Log                  zerolog.Logger
}

// Tracker observes play/pause/seek/end transitions for a single playback
// surface and emits periodic watch telemetry. A fresh session id is minted
// per tracker; revisiting a question creates a new tracker, never resumes
// an old session.
type Tracker struct {
	cfg       Config
	clock     clock.Clock
	log       zerolog.Logger
	sessionID uuid.UUID

	mu             sync.Mutex
	state          State
	startedAt      time.Time
	position       float64
	lastCompletion float64
	lastFlush      time.Time

	ticker    *clock.Ticker
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a tracker with a freshly generated watch session id.
func New(cfg Config) *Tracker {
	ck := cfg.Clock
	if ck == nil {
		ck = clock.New()
	}
	sessionID := uuid.New()
	return &Tracker{
		cfg:   cfg,
		clock: ck,
		log: cfg.Log.With().
			Str("component", "engagement_tracker").
			Str("watch_session_id", sessionID.String()).
			Logger(),
		sessionID: sessionID,
		state:     StateNotStarted,
		done:      make(chan struct{}),
	}
}

// SessionID returns the watch session id minted for this tracker.
func (t *Tracker) SessionID() uuid.UUID {
	return t.sessionID
}

// State returns the current lifecycle state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Play handles a transition into the playing state. The first transition
// emits the start event and arms the heartbeat; resuming from a pause just
// flips the state back.
func (t *Tracker) Play(ctx context.Context) {
	t.mu.Lock()
	switch t.state {
	case StateNotStarted:
		t.state = StatePlaying
		t.startedAt = t.clock.Now()
		t.ticker = t.clock.Ticker(HeartbeatInterval)
		// Capture the channel while holding the lock: stopTimerLocked
		// nils t.ticker, so the run loop must never touch the field.
		tick := t.ticker.C
		event := t.eventLocked(model.WatchEventStart)
		t.mu.Unlock()
		t.cfg.Emitter.Emit(ctx, event)
		go t.run(ctx, tick)
	case StatePaused:
		t.state = StatePlaying
		t.mu.Unlock()
	default:
		t.mu.Unlock()
	}
}

// Pause handles a transition into paused/buffering. One final progress
// event is flushed, rate-limited to one per FlushMinInterval.
func (t *Tracker) Pause(ctx context.Context) {
	t.mu.Lock()
	if t.state != StatePlaying {
		t.mu.Unlock()
		return
	}
	t.state = StatePaused

	if t.clock.Now().Sub(t.lastFlush) < FlushMinInterval {
		t.mu.Unlock()
		return
	}
	event := t.eventLocked(model.WatchEventProgress)
	t.mu.Unlock()
	t.cfg.Emitter.Emit(ctx, event)
}

// UpdatePosition records the player's reported position in seconds.
// Positions are only used for completion math — watch duration is
// wall-clock elapsed time, not position delta.
func (t *Tracker) UpdatePosition(seconds float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateEnded || seconds < 0 {
		return
	}
	t.position = seconds
}

// End handles end-of-stream. Terminal: the heartbeat stops and one final
// event is emitted with completion forced to 100%, regardless of the last
// position-derived value — end-of-stream is authoritative over
// interpolated duration math.
func (t *Tracker) End(ctx context.Context) {
	t.mu.Lock()
	if t.state == StateEnded || t.state == StateNotStarted {
		t.mu.Unlock()
		return
	}
	t.state = StateEnded
	t.stopTimerLocked()
	t.lastCompletion = 100
	event := t.eventLocked(model.WatchEventEnd)
	t.mu.Unlock()
	t.cfg.Emitter.Emit(ctx, event)
}

// Close cancels the heartbeat deterministically. Called on component
// teardown (navigating away) so no orphaned timer keeps driving telemetry
// for a no-longer-visible player. Idempotent.
func (t *Tracker) Close() {
	t.closeOnce.Do(func() {
		close(t.done)
		t.mu.Lock()
		t.stopTimerLocked()
		if t.state == StatePlaying || t.state == StatePaused {
			t.state = StateEnded
		}
		t.mu.Unlock()
	})
}

// run drives the heartbeat off the captured tick channel. A stopped
// ticker simply never fires again; the loop exits only through done.
func (t *Tracker) run(ctx context.Context, tick <-chan time.Time) {
	for {
		select {
		case <-t.done:
			return
		case <-tick:
			t.beat(ctx)
		}
	}
}

// beat emits one progress heartbeat. Suspended while paused.
func (t *Tracker) beat(ctx context.Context) {
	t.mu.Lock()
	if t.state != StatePlaying {
		t.mu.Unlock()
		return
	}
	event := t.eventLocked(model.WatchEventProgress)
	t.mu.Unlock()
	t.cfg.Emitter.Emit(ctx, event)
}

// eventLocked builds the telemetry event for the current state and marks
// the flush time. Caller holds t.mu.
func (t *Tracker) eventLocked(eventType model.WatchEventType) model.WatchEvent {
	t.lastFlush = t.clock.Now()

	var watched float64
	if !t.startedAt.IsZero() {
		watched = t.clock.Now().Sub(t.startedAt).Seconds()
	}

	return model.WatchEvent{
		SessionID:            t.sessionID,
		QuestionID:           t.cfg.QuestionID,
		ResultID:             t.cfg.ResultID,
		VideoRef:             t.cfg.VideoRef,
		WatchDurationSeconds: watched,
		TotalDurationSeconds: t.cfg.TotalDurationSeconds,
		CompletionPercentage: t.completionLocked(),
		EventType:            eventType,
	}
}

// completionLocked computes min(position/total, 100), clamped because
// player-reported positions can transiently exceed the duration by
// rounding, and kept monotonically non-decreasing within the session.
func (t *Tracker) completionLocked() float64 {
	if t.cfg.TotalDurationSeconds > 0 {
		pct := t.position / t.cfg.TotalDurationSeconds * 100
		if pct > 100 {
			pct = 100
		}
		if pct > t.lastCompletion {
			t.lastCompletion = pct
		}
	}
	return t.lastCompletion
}

func (t *Tracker) stopTimerLocked() {
	if t.ticker != nil {
		t.ticker.Stop()
		t.ticker = nil
	}
}
