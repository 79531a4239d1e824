package handler

import (
	"net/http"

	"github.com/edupulse/edupulse-backend/internal/model"
	"github.com/edupulse/edupulse-backend/internal/response"
	"github.com/edupulse/edupulse-backend/internal/service"
	"github.com/edupulse/edupulse-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// TelemetryHandler is the collector-facing ingest endpoint for watch
// telemetry emitted by clients directly (players running outside a live
// review stream). Accepted events follow the same queue as server-side
// emissions.
type TelemetryHandler struct {
	telemetry *service.TelemetryService
	log       zerolog.Logger
}

// NewTelemetryHandler creates a new TelemetryHandler.
func NewTelemetryHandler(telemetry *service.TelemetryService, log zerolog.Logger) *TelemetryHandler {
	return &TelemetryHandler{
		telemetry: telemetry,
		log:       log.With().Str("component", "telemetry_handler").Logger(),
	}
}

// Ingest handles POST /api/v1/collector/watch-events
//
// Responds 202 as soon as the event is on the queue. Enqueue failures are
// swallowed downstream, so a well-formed request never observes an error.
func (h *TelemetryHandler) Ingest(c *gin.Context) {
	var req model.IngestWatchEventRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation, fields)
		return
	}

	h.telemetry.Emit(c.Request.Context(), model.WatchEvent{
		SessionID:            req.SessionID,
		QuestionID:           req.QuestionID,
		ResultID:             req.ResultID,
		VideoRef:             req.VideoRef,
		WatchDurationSeconds: req.WatchDurationSeconds,
		TotalDurationSeconds: req.TotalDurationSeconds,
		CompletionPercentage: req.CompletionPercentage,
		EventType:            model.WatchEventType(req.EventType),
	})

	response.Success(c, http.StatusAccepted, gin.H{"accepted": true})
}
