package services

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

const (
	gradebookSheet    = "Grades"
	gradebookPageSize = 100
)

var gradebookHeader = []any{
	"Attempt", "Student ID", "Student", "Status", "Submitted At",
	"Score", "Max Score", "Percentage", "Grade Status", "Passed",
}

type exportService struct {
	Dependencies
}

func NewExportService(deps Dependencies) ExportService {
	return &exportService{Dependencies: deps.withDefaults()}
}

// ExportEvaluationGrades writes one row per attempt, joined with its grade
func (s *exportService) ExportEvaluationGrades(ctx context.Context, subject Subject, evaluationID uint) ([]byte, error) {
	path, err := loadEvaluationPath(ctx, s.Repo, evaluationID)
	if err != nil {
		return nil, err
	}
	if err := s.Policy.Authorize(ctx, subject, ActionEvaluationExport, path.resource("evaluation", evaluationID, "")); err != nil {
		return nil, err
	}

	attempts, err := s.listAllAttempts(ctx, evaluationID)
	if err != nil {
		return nil, err
	}

	grades, err := s.Repo.Grade().ListByEvaluation(ctx, evaluationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grades: %w", err)
	}
	gradeByAttempt := make(map[uint]*models.Grade, len(grades))
	for _, g := range grades {
		gradeByAttempt[g.AttemptID] = g
	}

	names := s.studentNames(ctx, attempts)

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.Logger.Error("Failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", gradebookSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(gradebookSheet, "A1", &gradebookHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(gradebookSheet, "A1", "J1", style)
	}

	for i, attempt := range attempts {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := gradebookRow(attempt, gradeByAttempt[attempt.ID], names[attempt.StudentID])
		if err := f.SetSheetRow(gradebookSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(gradebookSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze header: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	s.Logger.Info("Gradebook exported",
		"evaluation_id", evaluationID,
		"rows", len(attempts),
		"requested_by", subject.ID)

	return buf.Bytes(), nil
}

func (s *exportService) listAllAttempts(ctx context.Context, evaluationID uint) ([]*models.Attempt, error) {
	var all []*models.Attempt
	filters := repositories.AttemptFilters{
		Limit:     gradebookPageSize,
		SortBy:    "attempt_number",
		SortOrder: "asc",
	}
	for {
		page, total, err := s.Repo.Attempt().ListByEvaluation(ctx, evaluationID, filters)
		if err != nil {
			return nil, fmt.Errorf("failed to list attempts: %w", err)
		}
		all = append(all, page...)
		filters.Offset += len(page)
		if len(page) == 0 || int64(filters.Offset) >= total {
			return all, nil
		}
	}
}

// studentNames is best effort: identity lookups failing only leave the
// name column empty.
func (s *exportService) studentNames(ctx context.Context, attempts []*models.Attempt) map[string]string {
	seen := make(map[string]bool)
	var ids []string
	for _, a := range attempts {
		if !seen[a.StudentID] {
			seen[a.StudentID] = true
			ids = append(ids, a.StudentID)
		}
	}

	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names
	}
	users, err := s.Repo.User().GetByIDs(ctx, ids)
	if err != nil {
		s.Logger.Warn("Failed to resolve student names for export", "error", err)
		return names
	}
	for _, u := range users {
		names[u.ID] = u.FullName
	}
	return names
}

func gradebookRow(attempt *models.Attempt, grade *models.Grade, name string) []any {
	row := []any{attempt.AttemptNumber, attempt.StudentID, name, string(attempt.Status), "", "", "", "", "", ""}
	if attempt.SubmittedAt != nil {
		row[4] = attempt.SubmittedAt.UTC().Format("2006-01-02 15:04:05")
	}
	if attempt.Score != nil {
		row[5] = *attempt.Score
	}
	if attempt.MaxScore != nil {
		row[6] = *attempt.MaxScore
	}
	if grade != nil {
		row[5] = grade.Score
		row[6] = grade.MaxScore
		row[7] = grade.Percentage
		row[8] = string(grade.Status)
		row[9] = grade.Passed
	}
	return row
}
