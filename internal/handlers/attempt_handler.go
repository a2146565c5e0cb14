package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"github.com/SAP-F-2025/evaluation-service/internal/services"
	"github.com/SAP-F-2025/evaluation-service/internal/utils"
	"github.com/SAP-F-2025/evaluation-service/internal/validator"
)

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
	validator      *validator.Validator
	now            func() time.Time
}

func NewAttemptHandler(
	attemptService services.AttemptService,
	validator *validator.Validator,
	logger utils.Logger,
) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
		validator:      validator,
		now:            time.Now,
	}
}

// StartAttempt starts a new attempt for the evaluation in the path
// @Summary Start attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param evaluation_id path uint true "Evaluation ID"
// @Param attempt body services.StartAttemptRequest false "Overrides"
// @Success 201 {object} models.Attempt
// @Failure 409 {object} ErrorResponse
// @Router /evaluations/{evaluation_id}/attempts [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	evaluationID := h.parseIDParam(c, "evaluation_id")
	if evaluationID == 0 {
		return
	}
	subject, ok := h.subject(c)
	if !ok {
		return
	}

	var req services.StartAttemptRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.EvaluationID = evaluationID

	h.LogRequest(c, "Starting attempt", "evaluation_id", evaluationID)

	attempt, err := h.attemptService.Start(c.Request.Context(), subject, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attempt)
}

// GetAttempt returns an attempt with its answers
// @Router /attempts/{id} [get]
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	subject, ok := h.subject(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.GetByID(c.Request.Context(), subject, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// UpdateAnswers saves answers of an in-progress attempt
// @Router /attempts/{id}/answers [put]
func (h *AttemptHandler) UpdateAnswers(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	subject, ok := h.subject(c)
	if !ok {
		return
	}

	var req services.UpdateAnswersRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Updating attempt answers", "attempt_id", id, "answers", len(req.Answers))

	attempt, err := h.attemptService.UpdateAnswers(c.Request.Context(), subject, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// SubmitAttempt submits an attempt and auto-grades it when possible
// @Router /attempts/{id}/submit [post]
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	subject, ok := h.subject(c)
	if !ok {
		return
	}

	var req services.SubmitAttemptRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Submitting attempt", "attempt_id", id)

	attempt, err := h.attemptService.Submit(c.Request.Context(), subject, id, &req, h.now())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// DeleteAttempt voids the caller's own in-progress attempt
// @Router /attempts/{id} [delete]
func (h *AttemptHandler) DeleteAttempt(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	subject, ok := h.subject(c)
	if !ok {
		return
	}

	if err := h.attemptService.DeleteIfOwnInProgress(c.Request.Context(), subject, id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListMyAttempts lists the caller's attempts for an evaluation, newest first
// @Router /evaluations/{evaluation_id}/attempts/me [get]
func (h *AttemptHandler) ListMyAttempts(c *gin.Context) {
	evaluationID := h.parseIDParam(c, "evaluation_id")
	if evaluationID == 0 {
		return
	}
	subject, ok := h.subject(c)
	if !ok {
		return
	}

	attempts, err := h.attemptService.ListForStudent(c.Request.Context(), subject, evaluationID, "")
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"attempts": attempts})
}

// ListAttempts is the instructor listing of an evaluation's attempts
// @Param status query string false "Attempt status"
// @Param student_id query string false "Student ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Router /evaluations/{evaluation_id}/attempts [get]
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	evaluationID := h.parseIDParam(c, "evaluation_id")
	if evaluationID == 0 {
		return
	}
	subject, ok := h.subject(c)
	if !ok {
		return
	}

	filters, ok := h.parseAttemptFilters(c)
	if !ok {
		return
	}

	resp, err := h.attemptService.ListByEvaluation(c.Request.Context(), subject, evaluationID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AttemptHandler) parseAttemptFilters(c *gin.Context) (repositories.AttemptFilters, bool) {
	var query validator.AttemptListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid query parameters",
			Code:    "INVALID_ARGUMENT",
			Details: err.Error(),
		})
		return repositories.AttemptFilters{}, false
	}
	if err := h.validator.Validate(&query); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Code:    "INVALID_ARGUMENT",
			Details: err,
		})
		return repositories.AttemptFilters{}, false
	}

	filters := repositories.AttemptFilters{
		Limit:     query.Limit,
		Offset:    query.Offset,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	}
	if query.Status != "" {
		status := models.AttemptStatus(query.Status)
		filters.Status = &status
	}
	if studentID := strings.TrimSpace(query.StudentID); studentID != "" {
		filters.StudentID = &studentID
	}
	return filters, true
}
