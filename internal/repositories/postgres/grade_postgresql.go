package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"gorm.io/gorm"
)

type GradePostgreSQL struct {
	db *gorm.DB
}

func NewGradePostgreSQL(db *gorm.DB) repositories.GradeRepository {
	return &GradePostgreSQL{db: db}
}

func (g *GradePostgreSQL) Create(ctx context.Context, grade *models.Grade) error {
	if err := g.db.WithContext(ctx).Create(grade).Error; err != nil {
		return fmt.Errorf("failed to create grade: %w", err)
	}
	return nil
}

func (g *GradePostgreSQL) GetByID(ctx context.Context, id uint) (*models.Grade, error) {
	var grade models.Grade
	if err := g.db.WithContext(ctx).First(&grade, id).Error; err != nil {
		return nil, err
	}
	return &grade, nil
}

func (g *GradePostgreSQL) GetByAttempt(ctx context.Context, attemptID uint) (*models.Grade, error) {
	var grade models.Grade
	if err := g.db.WithContext(ctx).Where("attempt_id = ?", attemptID).First(&grade).Error; err != nil {
		return nil, err
	}
	return &grade, nil
}

func (g *GradePostgreSQL) GetByIDs(ctx context.Context, ids []uint) ([]*models.Grade, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var grades []*models.Grade
	if err := g.db.WithContext(ctx).Where("id IN ?", ids).Find(&grades).Error; err != nil {
		return nil, fmt.Errorf("failed to get grades: %w", err)
	}
	return grades, nil
}

func (g *GradePostgreSQL) ListByEvaluation(ctx context.Context, evaluationID uint) ([]*models.Grade, error) {
	var grades []*models.Grade
	if err := g.db.WithContext(ctx).
		Where("evaluation_id = ?", evaluationID).
		Order("id ASC").
		Find(&grades).Error; err != nil {
		return nil, fmt.Errorf("failed to list grades: %w", err)
	}
	return grades, nil
}

func (g *GradePostgreSQL) Update(ctx context.Context, grade *models.Grade) error {
	if err := g.db.WithContext(ctx).Save(grade).Error; err != nil {
		return fmt.Errorf("failed to update grade: %w", err)
	}
	return nil
}

func (g *GradePostgreSQL) Delete(ctx context.Context, id uint) error {
	result := g.db.WithContext(ctx).Delete(&models.Grade{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete grade: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
