package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"gorm.io/gorm"
)

type HierarchyPostgreSQL struct {
	db *gorm.DB
}

func NewHierarchyPostgreSQL(db *gorm.DB) repositories.HierarchyRepository {
	return &HierarchyPostgreSQL{db: db}
}

func (h *HierarchyPostgreSQL) GetCourse(ctx context.Context, id uint) (*models.Course, error) {
	var course models.Course
	if err := h.db.WithContext(ctx).First(&course, id).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (h *HierarchyPostgreSQL) GetModule(ctx context.Context, id uint) (*models.Module, error) {
	var module models.Module
	if err := h.db.WithContext(ctx).First(&module, id).Error; err != nil {
		return nil, err
	}
	return &module, nil
}

func (h *HierarchyPostgreSQL) GetLesson(ctx context.Context, id uint) (*models.Lesson, error) {
	var lesson models.Lesson
	if err := h.db.WithContext(ctx).First(&lesson, id).Error; err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (h *HierarchyPostgreSQL) GetCourseTree(ctx context.Context, courseID uint) (*models.Course, error) {
	var course models.Course
	if err := h.db.WithContext(ctx).
		Preload("Modules", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC").Order("id ASC")
		}).
		Preload("Modules.Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC").Order("id ASC")
		}).
		First(&course, courseID).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (h *HierarchyPostgreSQL) CourseIDForEvaluation(ctx context.Context, evaluationID uint) (uint, error) {
	var courseIDs []uint
	if err := h.db.WithContext(ctx).
		Table("evaluations").
		Joins("JOIN lessons ON lessons.id = evaluations.lesson_id").
		Joins("JOIN modules ON modules.id = lessons.module_id").
		Where("evaluations.id = ?", evaluationID).
		Limit(1).
		Pluck("modules.course_id", &courseIDs).Error; err != nil {
		return 0, fmt.Errorf("failed to resolve course for evaluation: %w", err)
	}
	if len(courseIDs) == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return courseIDs[0], nil
}

// ===== EVALUATIONS =====

type EvaluationPostgreSQL struct {
	db *gorm.DB
}

func NewEvaluationPostgreSQL(db *gorm.DB) repositories.EvaluationRepository {
	return &EvaluationPostgreSQL{db: db}
}

func (e *EvaluationPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Evaluation, error) {
	var evaluation models.Evaluation
	if err := e.db.WithContext(ctx).First(&evaluation, id).Error; err != nil {
		return nil, err
	}
	return &evaluation, nil
}

func (e *EvaluationPostgreSQL) GetWithQuestions(ctx context.Context, id uint) (*models.Evaluation, error) {
	var evaluation models.Evaluation
	if err := e.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC").Order("id ASC")
		}).
		First(&evaluation, id).Error; err != nil {
		return nil, err
	}
	return &evaluation, nil
}

func (e *EvaluationPostgreSQL) ListByLessons(ctx context.Context, lessonIDs []uint) ([]*models.Evaluation, error) {
	if len(lessonIDs) == 0 {
		return nil, nil
	}
	var evaluations []*models.Evaluation
	if err := e.db.WithContext(ctx).
		Where("lesson_id IN ?", lessonIDs).
		Order("lesson_id ASC").
		Order("id ASC").
		Find(&evaluations).Error; err != nil {
		return nil, fmt.Errorf("failed to list evaluations by lessons: %w", err)
	}
	return evaluations, nil
}
