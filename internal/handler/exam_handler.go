package handler

import (
	"errors"
	"net/http"

	"github.com/edupulse/edupulse-backend/internal/middleware"
	"github.com/edupulse/edupulse-backend/internal/model"
	"github.com/edupulse/edupulse-backend/internal/response"
	"github.com/edupulse/edupulse-backend/internal/service"
	"github.com/edupulse/edupulse-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ExamHandler serves the student-facing exam endpoints: the paper and the
// REST submission fallback for clients without a live attempt stream.
type ExamHandler struct {
	catalog     *service.CatalogService
	submissions *service.SubmissionService
	log         zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(catalog *service.CatalogService, submissions *service.SubmissionService, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		catalog:     catalog,
		submissions: submissions,
		log:         log.With().Str("component", "exam_handler").Logger(),
	}
}

// GetPaper handles GET /api/v1/student/exams/:exam_id
func (h *ExamHandler) GetPaper(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	paper, err := h.catalog.GetExamPaper(c.Request.Context(), examID, claims.StudentID)
	if err != nil {
		if errors.Is(err, service.ErrExamNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Str("exam_id", examID.String()).Msg("Get exam paper failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, paper)
}

// Submit handles POST /api/v1/student/exams/:exam_id/submit
func (h *ExamHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation, fields)
		return
	}

	for qid, label := range req.Answers {
		if !model.ValidOptionLabel(label) {
			response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation, map[string]string{
				qid.String(): "answer must be one of A, B, C, D",
			})
			return
		}
	}

	result, err := h.submissions.Submit(c.Request.Context(), claims.StudentID, examID, req.Answers)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExamNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrExamClosed):
			response.Fail(c, http.StatusConflict, response.ErrExamClosed)
		case errors.Is(err, service.ErrNoQuestions):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrNoQuestions)
		case errors.Is(err, service.ErrResultExists):
			response.Fail(c, http.StatusConflict, response.ErrResultAlreadyExists)
		default:
			h.log.Error().Err(err).Str("exam_id", examID.String()).Msg("Submission failed")
			response.Fail(c, http.StatusInternalServerError, response.ErrSubmissionFailed)
		}
		return
	}

	response.Success(c, http.StatusCreated, result)
}
