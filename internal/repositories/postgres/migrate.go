package postgres

import (
	"fmt"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"gorm.io/gorm"
)

// Migrate creates the tables owned by this service plus the constraints gorm
// tags cannot express.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Course{},
		&models.Module{},
		&models.Lesson{},
		&models.Evaluation{},
		&models.Question{},
		&models.Attempt{},
		&models.Answer{},
		&models.Grade{},
		&models.Enrollment{},
		&models.ModulePassOverride{},
		&models.Certificate{},
	); err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}

	// At most one in-progress attempt per (evaluation, student).
	stmt := fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_attempt_one_in_progress ON attempts (evaluation_id, student_id) WHERE status = '%s'",
		models.AttemptInProgress,
	)
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("failed to create in-progress attempt index: %w", err)
	}

	return nil
}
