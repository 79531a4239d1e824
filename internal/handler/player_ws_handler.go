package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/edupulse/edupulse-backend/internal/config"
	"github.com/edupulse/edupulse-backend/internal/engagement"
	"github.com/edupulse/edupulse-backend/internal/middleware"
	"github.com/edupulse/edupulse-backend/internal/response"
	"github.com/edupulse/edupulse-backend/internal/service"
	ws "github.com/edupulse/edupulse-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// PlayerWSHandler drives the review player stream. Each opened video mints
// its own watch session and tracker; the registry ties every tracker to
// the connection lifetime so no heartbeat survives a disconnect.
type PlayerWSHandler struct {
	cfg         *config.Config
	submissions *service.SubmissionService
	telemetry   *service.TelemetryService
	log         zerolog.Logger
}

// NewPlayerWSHandler creates a new PlayerWSHandler.
func NewPlayerWSHandler(cfg *config.Config, submissions *service.SubmissionService, telemetry *service.TelemetryService, log zerolog.Logger) *PlayerWSHandler {
	return &PlayerWSHandler{
		cfg:         cfg,
		submissions: submissions,
		telemetry:   telemetry,
		log:         log.With().Str("component", "player_ws_handler").Logger(),
	}
}

// Stream handles GET /ws/v1/student/review/:result_id/player
func (h *PlayerWSHandler) Stream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	resultID, err := uuid.Parse(c.Param("result_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	// Ownership gate before the upgrade: review streams exist only for the
	// student's own results.
	result, err := h.submissions.GetResult(c.Request.Context(), resultID, claims.StudentID)
	if err != nil {
		if errors.Is(err, service.ErrResultNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Str("result_id", resultID.String()).Msg("Get result failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	upgrader := buildUpgrader(h.cfg)
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	registry := engagement.NewRegistry()
	defer registry.CloseAll()

	questions := make(map[uuid.UUID]struct{}, len(result.Breakdown))
	for i := range result.Breakdown {
		questions[result.Breakdown[i].QuestionID] = struct{}{}
	}

	h.readLoop(c.Request.Context(), conn, registry, resultID, questions)
}

func (h *PlayerWSHandler) readLoop(ctx context.Context, conn *gws.Conn, registry *engagement.Registry, resultID uuid.UUID, questions map[uuid.UUID]struct{}) {
	for {
		var req ws.RequestPayload
		if err := ws.ReadJSON(conn, &req); err != nil {
			return
		}

		switch req.Action {
		case ws.ActionOpenVideo:
			h.openVideo(conn, registry, resultID, questions, req)

		case ws.ActionPlay, ws.ActionPause, ws.ActionPosition, ws.ActionEnded:
			sessionID, err := uuid.Parse(req.WatchSessionID)
			if err != nil {
				_ = ws.WriteError(conn, "invalid watch session id")
				continue
			}
			tracker := registry.Get(sessionID)
			if tracker == nil {
				_ = ws.WriteError(conn, "unknown watch session")
				continue
			}
			switch req.Action {
			case ws.ActionPlay:
				tracker.Play(ctx)
			case ws.ActionPause:
				tracker.Pause(ctx)
			case ws.ActionPosition:
				tracker.UpdatePosition(req.PositionSeconds)
			case ws.ActionEnded:
				tracker.End(ctx)
			}

		case ws.ActionPing:
			_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})

		default:
			_ = ws.WriteError(conn, fmt.Sprintf("unknown action %q", req.Action))
		}
	}
}

// openVideo mints a fresh watch session for one player instantiation.
// Revisiting the same question opens a new session, never resumes one.
func (h *PlayerWSHandler) openVideo(conn *gws.Conn, registry *engagement.Registry, resultID uuid.UUID, questions map[uuid.UUID]struct{}, req ws.RequestPayload) {
	questionID, err := uuid.Parse(req.QID)
	if err != nil {
		_ = ws.WriteError(conn, "invalid question id")
		return
	}
	if _, ok := questions[questionID]; !ok {
		_ = ws.WriteError(conn, "question is not part of this result")
		return
	}
	if req.VideoRef == "" {
		_ = ws.WriteError(conn, "video_ref is required")
		return
	}

	rid := resultID
	tracker := engagement.New(engagement.Config{
		QuestionID:           questionID,
		ResultID:             &rid,
		VideoRef:             req.VideoRef,
		TotalDurationSeconds: req.DurationSeconds,
		Emitter:              h.telemetry,
		Log:                  h.log,
	})
	registry.Add(tracker)

	_ = ws.WriteTyped(conn, ws.VideoOpenedResponse{
		Event:          ws.EventVideoOpened,
		WatchSessionID: tracker.SessionID().String(),
	})
}

var _ engagement.Emitter = (*service.TelemetryService)(nil)
