package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/evaluation-service/internal/services"
	"github.com/SAP-F-2025/evaluation-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// EvaluationHandler serves instructor read models of one evaluation.
type EvaluationHandler struct {
	BaseHandler
	attemptService services.AttemptService
	exportService  services.ExportService
}

func NewEvaluationHandler(
	attemptService services.AttemptService,
	exportService services.ExportService,
	logger utils.Logger,
) *EvaluationHandler {
	return &EvaluationHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
		exportService:  exportService,
	}
}

// GetStats returns attempt counts and score statistics
// @Router /evaluations/{evaluation_id}/stats [get]
func (h *EvaluationHandler) GetStats(c *gin.Context) {
	evaluationID := h.parseIDParam(c, "evaluation_id")
	if evaluationID == 0 {
		return
	}
	subject, ok := h.subject(c)
	if !ok {
		return
	}

	stats, err := h.attemptService.GetEvaluationStats(c.Request.Context(), subject, evaluationID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ExportGrades downloads the gradebook as an XLSX workbook
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Router /evaluations/{evaluation_id}/grades/export [get]
func (h *EvaluationHandler) ExportGrades(c *gin.Context) {
	evaluationID := h.parseIDParam(c, "evaluation_id")
	if evaluationID == 0 {
		return
	}
	subject, ok := h.subject(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting grades", "evaluation_id", evaluationID)

	data, err := h.exportService.ExportEvaluationGrades(c.Request.Context(), subject, evaluationID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="evaluation-%d-grades.xlsx"`, evaluationID))
	c.Data(http.StatusOK, xlsxContentType, data)
}
