package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/evaluation-service/internal/services"
	"github.com/SAP-F-2025/evaluation-service/internal/utils"
)

type ProgressHandler struct {
	BaseHandler
	progressService services.ProgressService
}

func NewProgressHandler(progressService services.ProgressService, logger utils.Logger) *ProgressHandler {
	return &ProgressHandler{
		BaseHandler:     NewBaseHandler(logger),
		progressService: progressService,
	}
}

// GetMyProgress recomputes and stores the caller's course progress
// @Summary Own course progress
// @Tags progress
// @Produce json
// @Param course_id path uint true "Course ID"
// @Success 200 {object} models.ProgressReport
// @Router /courses/{course_id}/progress/me [get]
func (h *ProgressHandler) GetMyProgress(c *gin.Context) {
	courseID := h.parseIDParam(c, "course_id")
	if courseID == 0 {
		return
	}
	subject, ok := h.subject(c)
	if !ok {
		return
	}

	report, err := h.progressService.GetMyProgress(c.Request.Context(), subject, courseID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetStudentProgress is the read-only instructor view
// @Router /courses/{course_id}/students/{student_id}/progress [get]
func (h *ProgressHandler) GetStudentProgress(c *gin.Context) {
	courseID := h.parseIDParam(c, "course_id")
	if courseID == 0 {
		return
	}
	studentID, ok := h.studentParam(c)
	if !ok {
		return
	}
	subject, ok := h.subject(c)
	if !ok {
		return
	}

	report, err := h.progressService.GetStudentProgress(c.Request.Context(), subject, courseID, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// SetModuleOverride forces a module's pass state for one student
// @Router /courses/{course_id}/modules/{module_id}/students/{student_id}/override [put]
func (h *ProgressHandler) SetModuleOverride(c *gin.Context) {
	courseID := h.parseIDParam(c, "course_id")
	if courseID == 0 {
		return
	}
	moduleID := h.parseIDParam(c, "module_id")
	if moduleID == 0 {
		return
	}
	studentID, ok := h.studentParam(c)
	if !ok {
		return
	}
	subject, ok := h.subject(c)
	if !ok {
		return
	}

	var req services.ModuleOverrideRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Setting module override", "course_id", courseID, "module_id", moduleID, "student_id", studentID)

	override, err := h.progressService.SetModuleOverride(c.Request.Context(), subject, courseID, moduleID, studentID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, override)
}

// @Router /courses/{course_id}/modules/{module_id}/students/{student_id}/override [delete]
func (h *ProgressHandler) ClearModuleOverride(c *gin.Context) {
	courseID := h.parseIDParam(c, "course_id")
	if courseID == 0 {
		return
	}
	moduleID := h.parseIDParam(c, "module_id")
	if moduleID == 0 {
		return
	}
	studentID, ok := h.studentParam(c)
	if !ok {
		return
	}
	subject, ok := h.subject(c)
	if !ok {
		return
	}

	if err := h.progressService.ClearModuleOverride(c.Request.Context(), subject, courseID, moduleID, studentID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ProgressHandler) studentParam(c *gin.Context) (string, bool) {
	studentID := strings.TrimSpace(c.Param("student_id"))
	if studentID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid student_id",
			Code:    "INVALID_ARGUMENT",
		})
		return "", false
	}
	return studentID, true
}
