package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/edupulse/edupulse-backend/internal/config"
	"github.com/edupulse/edupulse-backend/internal/middleware"
	"github.com/edupulse/edupulse-backend/internal/model"
	"github.com/edupulse/edupulse-backend/internal/response"
	"github.com/edupulse/edupulse-backend/internal/service"
	"github.com/edupulse/edupulse-backend/internal/session"
	ws "github.com/edupulse/edupulse-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// AttemptWSHandler drives the live attempt stream: one WebSocket connection
// owns one session controller. The read loop is the only dispatcher of
// client actions; the controller's tick loop pushes countdown and state
// events through the same connection.
type AttemptWSHandler struct {
	cfg         *config.Config
	catalog     *service.CatalogService
	submissions *service.SubmissionService
	store       session.Store
	log         zerolog.Logger
}

// NewAttemptWSHandler creates a new AttemptWSHandler.
func NewAttemptWSHandler(cfg *config.Config, catalog *service.CatalogService, submissions *service.SubmissionService, store session.Store, log zerolog.Logger) *AttemptWSHandler {
	return &AttemptWSHandler{
		cfg:         cfg,
		catalog:     catalog,
		submissions: submissions,
		store:       store,
		log:         log.With().Str("component", "attempt_ws_handler").Logger(),
	}
}

// Stream handles GET /ws/v1/student/exams/:exam_id/attempt
func (h *AttemptWSHandler) Stream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	upgrader := buildUpgrader(h.cfg)
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	sink := &wsEvents{conn: conn, log: h.log}
	ctrl := session.New(session.Config{
		StudentID: claims.StudentID,
		ExamID:    examID,
		Catalog:   h.catalog,
		Submitter: submitAdapter{svc: h.submissions},
		Store:     h.store,
		Events:    sink,
		Log:       h.log,
	})
	defer ctrl.Close()

	ctx := c.Request.Context()
	if err := ctrl.Start(ctx); err != nil {
		if errors.Is(err, service.ErrExamNotFound) {
			sink.send(ws.ErrorResponse{Event: ws.EventError, Error: "exam not found", Terminal: true})
		} else {
			h.log.Error().Err(err).Str("exam_id", examID.String()).Msg("Attempt startup failed")
			sink.send(ws.ErrorResponse{Event: ws.EventError, Error: "failed to start attempt", Terminal: true})
		}
		return
	}

	h.readLoop(ctx, conn, sink, ctrl)
}

func (h *AttemptWSHandler) readLoop(ctx context.Context, conn *gws.Conn, sink *wsEvents, ctrl *session.Controller) {
	for {
		var req ws.RequestPayload
		if err := ws.ReadJSON(conn, &req); err != nil {
			return
		}

		switch req.Action {
		case ws.ActionSelectAnswer:
			qid, err := uuid.Parse(req.QID)
			if err != nil {
				sink.send(ws.ErrorResponse{Event: ws.EventError, Error: "invalid question id"})
				continue
			}
			if err := ctrl.SelectAnswer(ctx, qid, req.Answer); err != nil {
				sink.send(ws.ErrorResponse{Event: ws.EventError, Error: err.Error()})
			}

		case ws.ActionNavigate:
			if req.Index == nil {
				sink.send(ws.ErrorResponse{Event: ws.EventError, Error: "index is required"})
				continue
			}
			idx := ctrl.Navigate(*req.Index)
			sink.send(ws.CursorResponse{Event: ws.EventCursor, Index: idx})

		case ws.ActionSubmit:
			if _, err := ctrl.RequestSubmit(); err != nil {
				sink.send(ws.ErrorResponse{Event: ws.EventError, Error: err.Error()})
			}

		case ws.ActionConfirmSubmit:
			if err := ctrl.ConfirmSubmit(ctx); err != nil {
				sink.send(ws.ErrorResponse{Event: ws.EventError, Error: err.Error()})
			}

		case ws.ActionCancelSubmit:
			ctrl.CancelSubmit()

		case ws.ActionPing:
			sink.send(ws.PongResponse{Event: ws.EventPong})

		default:
			sink.send(ws.ErrorResponse{Event: ws.EventError, Error: fmt.Sprintf("unknown action %q", req.Action)})
		}
	}
}

// wsEvents forwards controller notifications over the WebSocket. A single
// mutex serializes writes from the read loop and the controller's tick loop.
type wsEvents struct {
	mu   sync.Mutex
	conn *gws.Conn
	log  zerolog.Logger
}

var _ session.Events = (*wsEvents)(nil)

func (e *wsEvents) send(v interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := ws.WriteTyped(e.conn, v); err != nil {
		e.log.Debug().Err(err).Msg("WebSocket write failed")
	}
}

func (e *wsEvents) OnState(state session.State, snapshot *session.ExamSnapshot) {
	resp := ws.StateResponse{Event: ws.EventState, State: string(state)}
	if state == session.StateAlreadyCompleted && snapshot != nil {
		resp.Score = snapshot.Score
	}
	e.send(resp)
}

func (e *wsEvents) OnTick(remaining time.Duration) {
	e.send(ws.TickResponse{Event: ws.EventTick, RemainingSeconds: int(remaining.Seconds())})
}

func (e *wsEvents) OnAnswerSaved(questionID uuid.UUID, answeredCount int) {
	e.send(ws.AnswerSavedResponse{Event: ws.EventAnswerSaved, QID: questionID.String(), Answered: answeredCount})
}

func (e *wsEvents) OnSubmitSummary(sum session.Summary) {
	e.send(ws.SubmitSummaryResponse{
		Event:      ws.EventSubmitSummary,
		Answered:   sum.Answered,
		Unanswered: sum.Unanswered,
		Total:      sum.Total,
	})
}

func (e *wsEvents) OnCompleted(result *model.Result) {
	e.send(ws.CompletedResponse{
		Event:    ws.EventCompleted,
		ResultID: result.ID.String(),
		Score:    result.Score,
		Result:   result,
	})
}

func (e *wsEvents) OnError(err error) {
	terminal := errors.Is(err, session.ErrAlreadySubmitted) || errors.Is(err, session.ErrRejected)
	e.send(ws.ErrorResponse{Event: ws.EventError, Error: err.Error(), Terminal: terminal})
}

// submitAdapter translates submission-service rejections into the
// classification sentinels the session controller routes on.
type submitAdapter struct {
	svc *service.SubmissionService
}

var _ session.Submitter = submitAdapter{}

func (a submitAdapter) Submit(ctx context.Context, studentID int, examID uuid.UUID, answers map[uuid.UUID]string) (*model.Result, error) {
	result, err := a.svc.Submit(ctx, studentID, examID, answers)
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, service.ErrResultExists):
		return nil, fmt.Errorf("%w: %v", session.ErrAlreadySubmitted, err)
	case errors.Is(err, service.ErrExamClosed), errors.Is(err, service.ErrNoQuestions):
		return nil, fmt.Errorf("%w: %v", session.ErrRejected, err)
	default:
		return nil, err
	}
}
