package handler

import (
	"errors"
	"net/http"

	"github.com/edupulse/edupulse-backend/internal/middleware"
	"github.com/edupulse/edupulse-backend/internal/repository"
	"github.com/edupulse/edupulse-backend/internal/response"
	"github.com/edupulse/edupulse-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ResultHandler serves a student's graded results and the per-question
// engagement roll-up for the review flow.
type ResultHandler struct {
	submissions *service.SubmissionService
	watchEvents *repository.WatchEventRepository
	log         zerolog.Logger
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(submissions *service.SubmissionService, watchEvents *repository.WatchEventRepository, log zerolog.Logger) *ResultHandler {
	return &ResultHandler{
		submissions: submissions,
		watchEvents: watchEvents,
		log:         log.With().Str("component", "result_handler").Logger(),
	}
}

// List handles GET /api/v1/student/results
func (h *ResultHandler) List(c *gin.Context) {
	claims := middleware.GetClaims(c)

	results, err := h.submissions.ListResults(c.Request.Context(), claims.StudentID)
	if err != nil {
		h.log.Error().Err(err).Int("student_id", claims.StudentID).Msg("List results failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, results)
}

// Get handles GET /api/v1/student/results/:result_id
func (h *ResultHandler) Get(c *gin.Context) {
	claims := middleware.GetClaims(c)
	resultID, err := uuid.Parse(c.Param("result_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

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

	response.Success(c, http.StatusOK, result)
}

// GetEngagement handles GET /api/v1/student/results/:result_id/engagement
//
// Returns the newest telemetry event of every watch session linked to the
// result. Ownership is checked through the result itself.
func (h *ResultHandler) GetEngagement(c *gin.Context) {
	claims := middleware.GetClaims(c)
	resultID, err := uuid.Parse(c.Param("result_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if _, err := h.submissions.GetResult(c.Request.Context(), resultID, claims.StudentID); err != nil {
		if errors.Is(err, service.ErrResultNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Str("result_id", resultID.String()).Msg("Get result failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	events, err := h.watchEvents.ListByResult(c.Request.Context(), resultID)
	if err != nil {
		h.log.Error().Err(err).Str("result_id", resultID.String()).Msg("List watch events failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, events)
}
