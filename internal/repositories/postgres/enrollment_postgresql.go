package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EnrollmentPostgreSQL struct {
	db *gorm.DB
}

func NewEnrollmentPostgreSQL(db *gorm.DB) repositories.EnrollmentRepository {
	return &EnrollmentPostgreSQL{db: db}
}

func (e *EnrollmentPostgreSQL) GetByCourseAndStudent(ctx context.Context, courseID uint, studentID string) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := e.db.WithContext(ctx).
		Where("course_id = ? AND student_id = ?", courseID, studentID).
		First(&enrollment).Error; err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (e *EnrollmentPostgreSQL) UpdateProgress(ctx context.Context, enrollment *models.Enrollment) error {
	now := time.Now()
	result := e.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("id = ? AND version = ?", enrollment.ID, enrollment.Version).
		Updates(map[string]interface{}{
			"final_grade":  enrollment.FinalGrade,
			"passed_final": enrollment.PassedFinal,
			"status":       enrollment.Status,
			"completed_at": enrollment.CompletedAt,
			"version":      gorm.Expr("version + 1"),
			"updated_at":   now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update enrollment progress: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrVersionConflict
	}
	enrollment.Version++
	enrollment.UpdatedAt = now
	return nil
}

// ===== MODULE OVERRIDES =====

type ModuleOverridePostgreSQL struct {
	db *gorm.DB
}

func NewModuleOverridePostgreSQL(db *gorm.DB) repositories.ModuleOverrideRepository {
	return &ModuleOverridePostgreSQL{db: db}
}

func (m *ModuleOverridePostgreSQL) ListForStudent(ctx context.Context, moduleIDs []uint, studentID string) ([]*models.ModulePassOverride, error) {
	if len(moduleIDs) == 0 {
		return nil, nil
	}
	var overrides []*models.ModulePassOverride
	if err := m.db.WithContext(ctx).
		Where("module_id IN ? AND student_id = ?", moduleIDs, studentID).
		Find(&overrides).Error; err != nil {
		return nil, fmt.Errorf("failed to list module overrides: %w", err)
	}
	return overrides, nil
}

func (m *ModuleOverridePostgreSQL) Upsert(ctx context.Context, override *models.ModulePassOverride) error {
	return m.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "module_id"}, {Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"passed", "reason", "set_by", "updated_at"}),
		}).
		Create(override).Error
}

func (m *ModuleOverridePostgreSQL) Delete(ctx context.Context, moduleID uint, studentID string) error {
	result := m.db.WithContext(ctx).
		Where("module_id = ? AND student_id = ?", moduleID, studentID).
		Delete(&models.ModulePassOverride{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete module override: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ===== CERTIFICATES =====

type CertificatePostgreSQL struct {
	db *gorm.DB
}

func NewCertificatePostgreSQL(db *gorm.DB) repositories.CertificateRepository {
	return &CertificatePostgreSQL{db: db}
}

func (c *CertificatePostgreSQL) Exists(ctx context.Context, courseID uint, studentID string) (bool, error) {
	var count int64
	if err := c.db.WithContext(ctx).
		Model(&models.Certificate{}).
		Where("course_id = ? AND student_id = ?", courseID, studentID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (c *CertificatePostgreSQL) Create(ctx context.Context, certificate *models.Certificate) error {
	if err := c.db.WithContext(ctx).Create(certificate).Error; err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}
	return nil
}

func (c *CertificatePostgreSQL) GetByCourseAndStudent(ctx context.Context, courseID uint, studentID string) (*models.Certificate, error) {
	var certificate models.Certificate
	if err := c.db.WithContext(ctx).
		Where("course_id = ? AND student_id = ?", courseID, studentID).
		First(&certificate).Error; err != nil {
		return nil, err
	}
	return &certificate, nil
}
