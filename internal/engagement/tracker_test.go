package engagement

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edupulse/edupulse-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmitter struct {
	mu     sync.Mutex
	events []model.WatchEvent
}

func (f *fakeEmitter) Emit(ctx context.Context, event model.WatchEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeEmitter) all() []model.WatchEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.WatchEvent, len(f.events))
	copy(out, f.events)
	return out
}

func (f *fakeEmitter) last() model.WatchEvent {
	events := f.all()
	return events[len(events)-1]
}

func newTestTracker(totalSeconds float64) (*Tracker, *fakeEmitter, *clock.Mock) {
	emitter := &fakeEmitter{}
	mock := clock.NewMock()
	resultID := uuid.New()
	tracker := New(Config{
		QuestionID:           uuid.New(),
		ResultID:             &resultID,
		VideoRef:             "videos/explanations/q42.mp4",
		TotalDurationSeconds: totalSeconds,
		Emitter:              emitter,
		Clock:                mock,
		Log:                  zerolog.Nop(),
	})
	return tracker, emitter, mock
}

func TestPlayEmitsStartOnce(t *testing.T) {
	tracker, emitter, _ := newTestTracker(120)
	defer tracker.Close()
	ctx := context.Background()

	tracker.Play(ctx)
	assert.Equal(t, StatePlaying, tracker.State())

	events := emitter.all()
	require.Len(t, events, 1)
	assert.Equal(t, model.WatchEventStart, events[0].EventType)
	assert.Equal(t, tracker.SessionID(), events[0].SessionID)
	assert.Equal(t, "videos/explanations/q42.mp4", events[0].VideoRef)
	assert.Zero(t, events[0].CompletionPercentage)

	// A second play while already playing is a no-op.
	tracker.Play(ctx)
	assert.Len(t, emitter.all(), 1)
}

func TestEachTrackerMintsFreshSession(t *testing.T) {
	a, _, _ := newTestTracker(120)
	b, _, _ := newTestTracker(120)
	defer a.Close()
	defer b.Close()

	assert.NotEqual(t, a.SessionID(), b.SessionID())
}

func TestHeartbeatEmitsProgress(t *testing.T) {
	tracker, emitter, _ := newTestTracker(120)
	defer tracker.Close()
	ctx := context.Background()

	tracker.Play(ctx)
	tracker.UpdatePosition(30)
	tracker.beat(ctx)

	event := emitter.last()
	assert.Equal(t, model.WatchEventProgress, event.EventType)
	assert.Equal(t, 25.0, event.CompletionPercentage)
}

func TestHeartbeatSuspendedWhilePaused(t *testing.T) {
	tracker, emitter, mock := newTestTracker(120)
	defer tracker.Close()
	ctx := context.Background()

	tracker.Play(ctx)
	mock.Add(6 * time.Second)
	tracker.Pause(ctx)
	before := len(emitter.all())

	tracker.beat(ctx)
	assert.Len(t, emitter.all(), before)

	// Resume turns the heartbeat back on.
	tracker.Play(ctx)
	tracker.beat(ctx)
	assert.Len(t, emitter.all(), before+1)
}

func TestPauseFlushIsRateLimited(t *testing.T) {
	tracker, emitter, mock := newTestTracker(120)
	defer tracker.Close()
	ctx := context.Background()

	tracker.Play(ctx) // Start event sets the flush mark
	tracker.Pause(ctx)
	assert.Len(t, emitter.all(), 1, "pause right after start must not flush")

	tracker.Play(ctx)
	mock.Add(6 * time.Second)
	tracker.Pause(ctx)
	require.Len(t, emitter.all(), 2)
	assert.Equal(t, model.WatchEventProgress, emitter.last().EventType)

	// Rapid pause/resume storms stay suppressed.
	tracker.Play(ctx)
	mock.Add(time.Second)
	tracker.Pause(ctx)
	assert.Len(t, emitter.all(), 2)
}

func TestWatchDurationIsWallClock(t *testing.T) {
	tracker, emitter, mock := newTestTracker(120)
	defer tracker.Close()
	ctx := context.Background()

	tracker.Play(ctx)
	mock.Add(6 * time.Second)
	tracker.UpdatePosition(3) // Player position lags the wall clock
	tracker.beat(ctx)

	event := emitter.last()
	assert.Equal(t, 6.0, event.WatchDurationSeconds)
	assert.Equal(t, 2.5, event.CompletionPercentage)
}

func TestCompletionIsClampedAndMonotonic(t *testing.T) {
	tracker, emitter, _ := newTestTracker(120)
	defer tracker.Close()
	ctx := context.Background()

	tracker.Play(ctx)

	// Player rounding can transiently report past the end.
	tracker.UpdatePosition(130)
	tracker.beat(ctx)
	assert.Equal(t, 100.0, emitter.last().CompletionPercentage)

	// A seek backwards never lowers the reported completion.
	tracker.UpdatePosition(60)
	tracker.beat(ctx)
	assert.Equal(t, 100.0, emitter.last().CompletionPercentage)
}

func TestUnknownDurationReportsZeroCompletion(t *testing.T) {
	tracker, emitter, _ := newTestTracker(0)
	defer tracker.Close()
	ctx := context.Background()

	tracker.Play(ctx)
	tracker.UpdatePosition(45)
	tracker.beat(ctx)

	assert.Zero(t, emitter.last().CompletionPercentage)
}

func TestEndForcesFullCompletion(t *testing.T) {
	tracker, emitter, _ := newTestTracker(120)
	defer tracker.Close()
	ctx := context.Background()

	tracker.Play(ctx)
	tracker.UpdatePosition(20) // Only ~16% by position math
	tracker.End(ctx)

	event := emitter.last()
	assert.Equal(t, model.WatchEventEnd, event.EventType)
	assert.Equal(t, 100.0, event.CompletionPercentage)
	assert.Equal(t, StateEnded, tracker.State())

	// Terminal: nothing plays or emits afterwards.
	before := len(emitter.all())
	tracker.Play(ctx)
	tracker.beat(ctx)
	tracker.End(ctx)
	assert.Len(t, emitter.all(), before)
}

func TestHeartbeatLoopSurvivesEnd(t *testing.T) {
	// End stops the ticker while the heartbeat goroutine is starting up;
	// the goroutine must keep running off its captured channel instead of
	// dereferencing the cleared ticker field.
	for i := 0; i < 20; i++ {
		tracker, _, _ := newTestTracker(120)
		ctx := context.Background()

		tracker.Play(ctx)
		tracker.End(ctx)
		time.Sleep(100 * time.Microsecond)

		assert.Equal(t, StateEnded, tracker.State())
		tracker.Close()
	}
}

func TestEndBeforePlayIsIgnored(t *testing.T) {
	tracker, emitter, _ := newTestTracker(120)
	defer tracker.Close()

	tracker.End(context.Background())
	assert.Empty(t, emitter.all())
	assert.Equal(t, StateNotStarted, tracker.State())
}

func TestCloseStopsTracking(t *testing.T) {
	tracker, emitter, _ := newTestTracker(120)
	ctx := context.Background()

	tracker.Play(ctx)
	tracker.Close()
	tracker.Close() // Idempotent

	assert.Equal(t, StateEnded, tracker.State())

	before := len(emitter.all())
	tracker.beat(ctx)
	assert.Len(t, emitter.all(), before)
}
