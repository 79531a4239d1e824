package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edupulse/edupulse-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TickInterval is how often the countdown recomputes remaining time and
// broadcasts it. The deadline itself is derived from the stored start time,
// never from a decrementing counter, so a missed tick cannot stretch it.
const TickInterval = time.Second

// Config wires a controller to its collaborators.
type Config struct {
	StudentID int
	ExamID    uuid.UUID
	Catalog   Catalog
	Submitter Submitter
	Store     Store
	Events    Events
	Clock     clock.Clock // Nil defaults to the wall clock
	Log       zerolog.Logger
}

// Controller is the state machine owning one attempt. All methods are safe
// for concurrent use, but the intended model is a single event-driven
// caller (one WebSocket read loop) plus the controller's own tick loop.
type Controller struct {
	cfg   Config
	clock clock.Clock
	log   zerolog.Logger

	mu         sync.Mutex
	state      State
	snapshot   *ExamSnapshot
	answers    map[uuid.UUID]string
	questions  map[uuid.UUID]struct{}
	cursor     int
	deadline   time.Time
	confirming bool
	autoFired  bool
	rejected   bool

	ticker    *clock.Ticker
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a controller for one (student, exam) attempt.
func New(cfg Config) *Controller {
	ck := cfg.Clock
	if ck == nil {
		ck = clock.New()
	}
	return &Controller{
		cfg:   cfg,
		clock: ck,
		log: cfg.Log.With().
			Str("component", "session_controller").
			Int("student_id", cfg.StudentID).
			Str("exam_id", cfg.ExamID.String()).
			Logger(),
		answers: make(map[uuid.UUID]string),
		done:    make(chan struct{}),
	}
}

// Start runs the LOADING phase: fetch the exam snapshot, recover any
// persisted answers, and either enter IN_PROGRESS with a running countdown
// or land on ALREADY_COMPLETED. Any fetch failure aborts session startup —
// no partial session is ever observable.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != "" {
		c.mu.Unlock()
		return errors.New("controller already started")
	}
	c.state = StateLoading
	c.mu.Unlock()

	snap, err := c.cfg.Catalog.LoadExam(ctx, c.cfg.ExamID, c.cfg.StudentID)
	if err != nil {
		return fmt.Errorf("load exam: %w", err)
	}

	if snap.AlreadyAttempted {
		c.mu.Lock()
		c.snapshot = snap
		c.state = StateAlreadyCompleted
		c.mu.Unlock()
		c.cfg.Events.OnState(StateAlreadyCompleted, snap)
		return nil
	}

	answers, err := c.cfg.Store.LoadAnswers(ctx, c.cfg.ExamID, c.cfg.StudentID)
	if err != nil {
		return fmt.Errorf("recover answers: %w", err)
	}

	start, err := c.cfg.Store.RecordStart(ctx, c.cfg.ExamID, c.cfg.StudentID, c.clock.Now())
	if err != nil {
		return fmt.Errorf("record start: %w", err)
	}

	c.mu.Lock()
	c.snapshot = snap
	c.questions = make(map[uuid.UUID]struct{}, len(snap.QuestionIDs))
	for _, qid := range snap.QuestionIDs {
		c.questions[qid] = struct{}{}
	}
	for qid, label := range answers {
		if _, ok := c.questions[qid]; ok {
			c.answers[qid] = label
		}
	}
	c.deadline = start.Add(time.Duration(snap.DurationMinutes) * time.Minute)
	c.state = StateInProgress
	c.ticker = c.clock.Ticker(TickInterval)
	// Capture the channel while holding the lock: stopTimerLocked nils
	// c.ticker, so the run loop must never touch the field itself.
	tick := c.ticker.C
	c.mu.Unlock()

	c.cfg.Events.OnState(StateInProgress, snap)
	c.log.Info().Time("deadline", c.deadline).Int("recovered_answers", len(answers)).Msg("Attempt started")

	go c.run(ctx, tick)

	// A reconnect after the deadline must submit immediately, not wait a tick.
	c.handleTick(ctx)
	return nil
}

// run drives the countdown off the captured tick channel. A stopped
// ticker simply never fires again; the loop exits only through done.
func (c *Controller) run(ctx context.Context, tick <-chan time.Time) {
	for {
		select {
		case <-c.done:
			return
		case <-tick:
			c.handleTick(ctx)
		}
	}
}

// handleTick broadcasts remaining time and fires the forced submission when
// the deadline is reached. The forced path is the same as a manual submit
// with no confirmation step, and fires at most once per deadline (it is
// re-armed only when a transient submission failure rolls the state back).
func (c *Controller) handleTick(ctx context.Context) {
	c.mu.Lock()
	if c.state != StateInProgress {
		c.mu.Unlock()
		return
	}
	remaining := c.deadline.Sub(c.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	expire := remaining == 0 && !c.autoFired && !c.rejected
	if expire {
		c.autoFired = true
	}
	c.mu.Unlock()

	c.cfg.Events.OnTick(remaining)
	if expire {
		c.log.Info().Msg("Deadline reached, forcing submission")
		c.submit(ctx)
	}
}

// SelectAnswer upserts one answer. Idempotent; does not advance the
// cursor. Calls are ignored once the attempt leaves IN_PROGRESS or the
// deadline has passed — answers captured after the deadline are never
// included in the submission.
func (c *Controller) SelectAnswer(ctx context.Context, questionID uuid.UUID, label string) error {
	if !model.ValidOptionLabel(label) {
		return fmt.Errorf("invalid option label %q", label)
	}

	c.mu.Lock()
	if c.state != StateInProgress || !c.clock.Now().Before(c.deadline) {
		c.mu.Unlock()
		return nil
	}
	if _, ok := c.questions[questionID]; !ok {
		c.mu.Unlock()
		return fmt.Errorf("question %s is not part of this exam", questionID)
	}
	c.answers[questionID] = label
	answered := len(c.answers)
	c.mu.Unlock()

	// Autosave is best-effort: a lost write only risks the recovery copy,
	// never the in-memory attempt.
	if err := c.cfg.Store.SaveAnswer(ctx, c.cfg.ExamID, c.cfg.StudentID, questionID, label); err != nil {
		c.log.Warn().Err(err).Str("question_id", questionID.String()).Msg("Answer autosave failed")
	}

	c.cfg.Events.OnAnswerSaved(questionID, answered)
	return nil
}

// Navigate moves the cursor, clamped to [0, N-1]. Navigation is
// unrestricted in both directions and never validates answers.
func (c *Controller) Navigate(index int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateInProgress {
		return c.cursor
	}
	n := len(c.snapshot.QuestionIDs)
	if n == 0 {
		return c.cursor
	}
	if index < 0 {
		index = 0
	}
	if index > n-1 {
		index = n - 1
	}
	c.cursor = index
	return c.cursor
}

// RequestSubmit opens the confirmation step and reports answered vs.
// unanswered counts. The actual submission waits for ConfirmSubmit.
func (c *Controller) RequestSubmit() (Summary, error) {
	c.mu.Lock()
	if c.state != StateInProgress {
		c.mu.Unlock()
		return Summary{}, fmt.Errorf("cannot submit in state %s", c.state)
	}
	c.confirming = true
	sum := c.summaryLocked()
	c.mu.Unlock()

	c.cfg.Events.OnSubmitSummary(sum)
	return sum, nil
}

// CancelSubmit dismisses the confirmation step.
func (c *Controller) CancelSubmit() {
	c.mu.Lock()
	c.confirming = false
	c.mu.Unlock()
}

// ConfirmSubmit finalizes a manual submission. RequestSubmit must have
// been called first.
func (c *Controller) ConfirmSubmit(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateInProgress || !c.confirming {
		c.mu.Unlock()
		return errors.New("no submission awaiting confirmation")
	}
	c.confirming = false
	c.mu.Unlock()

	c.submit(ctx)
	return nil
}

// submit is the single submission path shared by the manual and
// timeout-forced triggers. Exactly one request is in flight: the
// SUBMITTING state guards against a second one, and further SelectAnswer
// and Navigate calls are ignored while it is outstanding.
func (c *Controller) submit(ctx context.Context) {
	c.mu.Lock()
	if c.state != StateInProgress {
		c.mu.Unlock()
		return
	}
	c.state = StateSubmitting
	frozen := make(map[uuid.UUID]string, len(c.answers))
	for qid, label := range c.answers {
		frozen[qid] = label
	}
	c.mu.Unlock()

	c.cfg.Events.OnState(StateSubmitting, c.snapshot)

	result, err := c.cfg.Submitter.Submit(ctx, c.cfg.StudentID, c.cfg.ExamID, frozen)
	if err != nil {
		c.handleSubmitError(err)
		return
	}

	c.mu.Lock()
	c.state = StateCompleted
	c.stopTimerLocked()
	c.mu.Unlock()

	if err := c.cfg.Store.Clear(ctx, c.cfg.ExamID, c.cfg.StudentID); err != nil {
		c.log.Warn().Err(err).Msg("Attempt snapshot clear failed")
	}

	c.log.Info().Float64("score", result.Score).Msg("Attempt completed")
	c.cfg.Events.OnState(StateCompleted, c.snapshot)
	c.cfg.Events.OnCompleted(result)
}

// handleSubmitError routes a failed submission. Transient failures return
// to IN_PROGRESS with the answer map intact so the student can retry
// without losing remaining minutes; policy rejections are terminal.
func (c *Controller) handleSubmitError(err error) {
	c.mu.Lock()
	switch {
	case errors.Is(err, ErrAlreadySubmitted):
		// The server already holds a result — mirror the pre-flight path.
		c.state = StateAlreadyCompleted
		c.stopTimerLocked()
		c.mu.Unlock()
		c.cfg.Events.OnError(err)
		c.cfg.Events.OnState(StateAlreadyCompleted, c.snapshot)

	case errors.Is(err, ErrRejected):
		// Terminal business rule (exam closed). The countdown stops so the
		// forced path cannot hammer the server, but answers stay visible.
		c.state = StateInProgress
		c.rejected = true
		c.stopTimerLocked()
		c.mu.Unlock()
		c.cfg.Events.OnError(err)

	default:
		// Transient: retryable. Re-arm the forced trigger so the deadline
		// path fires again on the next tick if time is already up.
		c.state = StateInProgress
		c.autoFired = false
		c.mu.Unlock()
		c.log.Warn().Err(err).Msg("Submission failed, attempt preserved")
		c.cfg.Events.OnError(err)
	}
}

// Close tears the controller down, cancelling the countdown
// deterministically. Idempotent; safe to call in any state.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		c.stopTimerLocked()
		c.mu.Unlock()
		c.log.Debug().Msg("Controller closed")
	})
}

func (c *Controller) stopTimerLocked() {
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
}

// State returns the current attempt state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Cursor returns the current question index.
func (c *Controller) Cursor() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// Remaining returns the time left before the deadline, floored at zero.
func (c *Controller) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deadline.IsZero() {
		return 0
	}
	remaining := c.deadline.Sub(c.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Answers returns a copy of the captured answer map.
func (c *Controller) Answers() map[uuid.UUID]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[uuid.UUID]string, len(c.answers))
	for qid, label := range c.answers {
		out[qid] = label
	}
	return out
}

// Summary reports answered vs. unanswered counts.
func (c *Controller) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summaryLocked()
}

func (c *Controller) summaryLocked() Summary {
	total := 0
	if c.snapshot != nil {
		total = len(c.snapshot.QuestionIDs)
	}
	answered := len(c.answers)
	return Summary{
		Answered:   answered,
		Unanswered: total - answered,
		Total:      total,
	}
}
