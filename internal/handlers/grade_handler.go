package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/evaluation-service/internal/services"
	"github.com/SAP-F-2025/evaluation-service/internal/utils"
)

type GradeHandler struct {
	BaseHandler
	gradeService services.GradeService
}

func NewGradeHandler(gradeService services.GradeService, logger utils.Logger) *GradeHandler {
	return &GradeHandler{
		BaseHandler:  NewBaseHandler(logger),
		gradeService: gradeService,
	}
}

// GradeAttempt records a manual grade for a submitted attempt
// @Summary Grade attempt
// @Tags grades
// @Accept json
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param grade body services.GradeRequest true "Grade"
// @Success 201 {object} models.Grade
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/grade [post]
func (h *GradeHandler) GradeAttempt(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}
	subject, ok := h.subject(c)
	if !ok {
		return
	}

	var req services.GradeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Grading attempt", "attempt_id", attemptID)

	grade, err := h.gradeService.Grade(c.Request.Context(), subject, attemptID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, grade)
}

// GetAttemptGrade returns the grade of an attempt
// @Router /attempts/{id}/grade [get]
func (h *GradeHandler) GetAttemptGrade(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}
	subject, ok := h.subject(c)
	if !ok {
		return
	}

	grade, err := h.gradeService.GetByAttempt(c.Request.Context(), subject, attemptID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, grade)
}

// @Router /grades/{id} [get]
func (h *GradeHandler) GetGrade(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	subject, ok := h.subject(c)
	if !ok {
		return
	}

	grade, err := h.gradeService.GetByID(c.Request.Context(), subject, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, grade)
}

// UpdateGrade applies a partial update to a grade
// @Router /grades/{id} [patch]
func (h *GradeHandler) UpdateGrade(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	subject, ok := h.subject(c)
	if !ok {
		return
	}

	var req services.UpdateGradeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Updating grade", "grade_id", id)

	grade, err := h.gradeService.UpdatePartial(c.Request.Context(), subject, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, grade)
}

// PublishGrade makes a grade visible to the student
// @Router /grades/{id}/publish [post]
func (h *GradeHandler) PublishGrade(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	subject, ok := h.subject(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Publishing grade", "grade_id", id)

	grade, err := h.gradeService.Publish(c.Request.Context(), subject, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, grade)
}

// @Router /grades/{id} [delete]
func (h *GradeHandler) DeleteGrade(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	subject, ok := h.subject(c)
	if !ok {
		return
	}

	if err := h.gradeService.Delete(c.Request.Context(), subject, id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
