package services

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

// hierarchyPath is an evaluation with its ancestors, leaf first.
type hierarchyPath struct {
	Evaluation *models.Evaluation
	Lesson     *models.Lesson
	Module     *models.Module
	Course     *models.Course
}

func loadHierarchy(ctx context.Context, repo repositories.Repository, evaluation *models.Evaluation) (*hierarchyPath, error) {
	lesson, err := repo.Hierarchy().GetLesson(ctx, evaluation.LessonID)
	if err != nil {
		return nil, hierarchyError(err, "lesson", evaluation.LessonID)
	}
	module, err := repo.Hierarchy().GetModule(ctx, lesson.ModuleID)
	if err != nil {
		return nil, hierarchyError(err, "module", lesson.ModuleID)
	}
	course, err := repo.Hierarchy().GetCourse(ctx, module.CourseID)
	if err != nil {
		return nil, hierarchyError(err, "course", module.CourseID)
	}
	return &hierarchyPath{Evaluation: evaluation, Lesson: lesson, Module: module, Course: course}, nil
}

// loadEvaluationPath resolves an evaluation id to its full path.
func loadEvaluationPath(ctx context.Context, repo repositories.Repository, evaluationID uint) (*hierarchyPath, error) {
	evaluation, err := repo.Evaluation().GetByID(ctx, evaluationID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEvaluationNotFound
		}
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}
	return loadHierarchy(ctx, repo, evaluation)
}

func hierarchyError(err error, level string, id uint) error {
	if repositories.IsNotFoundError(err) {
		return fmt.Errorf("%s %d of evaluation: %w", level, id, ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", level, err)
}

// firstArchived walks from the evaluation up to the course and names the
// first archived level.
func firstArchived(path *hierarchyPath) (string, bool) {
	levels := []struct {
		name   string
		status models.ContentStatus
	}{
		{"evaluation", path.Evaluation.Status},
		{"lesson", path.Lesson.Status},
		{"module", path.Module.Status},
		{"course", path.Course.Status},
	}
	for _, level := range levels {
		if level.status == models.ContentArchived {
			return level.name, true
		}
	}
	return "", false
}

// ensureNotArchived fails with ErrArchivedContent when any level is archived.
func ensureNotArchived(path *hierarchyPath) error {
	if level, archived := firstArchived(path); archived {
		return fmt.Errorf("%s of evaluation %d: %w", level, path.Evaluation.ID, ErrArchivedContent)
	}
	return nil
}

// managers are the staff members responsible for the evaluation.
func (p *hierarchyPath) managers() []string {
	var ids []string
	for _, id := range []string{p.Evaluation.CreatedBy, p.Course.CreatedBy} {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func (p *hierarchyPath) resource(kind string, id uint, ownerID string) Resource {
	return Resource{Kind: kind, ID: id, OwnerID: ownerID, ManagerIDs: p.managers()}
}
