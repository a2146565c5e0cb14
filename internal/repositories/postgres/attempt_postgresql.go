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

type AttemptPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, attempt *models.Attempt) error {
	if err := a.db.WithContext(ctx).Omit(clause.Associations).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}
	return nil
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByIDWithAnswers(ctx context.Context, id uint) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.db.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB { return db.Order("question_id ASC") }).
		First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByIDForUpdate(ctx context.Context, id uint) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&attempt, id).Error; err != nil {
		return nil, err
	}
	answers, err := NewAnswerPostgreSQL(a.db).ListByAttempt(ctx, id)
	if err != nil {
		return nil, err
	}
	attempt.Answers = answers
	return &attempt, nil
}

// Update saves the attempt row only; answers go through AnswerRepository.
func (a *AttemptPostgreSQL) Update(ctx context.Context, attempt *models.Attempt) error {
	if err := a.db.WithContext(ctx).Omit(clause.Associations).Save(attempt).Error; err != nil {
		return fmt.Errorf("failed to update attempt: %w", err)
	}
	return nil
}

func (a *AttemptPostgreSQL) GetMaxAttemptNumber(ctx context.Context, evaluationID uint, studentID string) (int, error) {
	var maxNumber *int
	if err := a.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("evaluation_id = ? AND student_id = ?", evaluationID, studentID).
		Select("MAX(attempt_number)").
		Scan(&maxNumber).Error; err != nil {
		return 0, fmt.Errorf("failed to get max attempt number: %w", err)
	}
	if maxNumber == nil {
		return 0, nil
	}
	return *maxNumber, nil
}

func (a *AttemptPostgreSQL) HasInProgress(ctx context.Context, evaluationID uint, studentID string) (bool, error) {
	var count int64
	if err := a.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("evaluation_id = ? AND student_id = ? AND status = ?", evaluationID, studentID, models.AttemptInProgress).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByEvaluationAndStudent orders by submission time, unsubmitted attempts last.
func (a *AttemptPostgreSQL) ListByEvaluationAndStudent(ctx context.Context, evaluationID uint, studentID string) ([]*models.Attempt, error) {
	var attempts []*models.Attempt
	if err := a.db.WithContext(ctx).
		Where("evaluation_id = ? AND student_id = ?", evaluationID, studentID).
		Order("submitted_at DESC NULLS LAST").
		Order("attempt_number DESC").
		Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to list attempts by evaluation and student: %w", err)
	}
	return attempts, nil
}

func (a *AttemptPostgreSQL) ListByEvaluation(ctx context.Context, evaluationID uint, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	var attempts []*models.Attempt
	var total int64

	// apply filter first
	query := a.db.WithContext(ctx).Model(&models.Attempt{}).Where("evaluation_id = ?", evaluationID)
	query = a.helpers.ApplyAttemptFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = a.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&attempts).Error; err != nil {
		return nil, 0, err
	}

	return attempts, total, nil
}

func (a *AttemptPostgreSQL) ListScoredForStudent(ctx context.Context, studentID string, evaluationIDs []uint) ([]*models.Attempt, error) {
	if len(evaluationIDs) == 0 {
		return nil, nil
	}
	var attempts []*models.Attempt
	if err := a.db.WithContext(ctx).
		Where("student_id = ? AND evaluation_id IN ?", studentID, evaluationIDs).
		Where("status = ? AND score IS NOT NULL AND max_score IS NOT NULL", models.AttemptGraded).
		Order("evaluation_id ASC").
		Order("attempt_number ASC").
		Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to list scored attempts: %w", err)
	}
	return attempts, nil
}

// ListOverdue returns in-progress attempts whose time limit has elapsed.
func (a *AttemptPostgreSQL) ListOverdue(ctx context.Context, now time.Time, limit int) ([]*models.Attempt, error) {
	var attempts []*models.Attempt
	query := a.db.WithContext(ctx).
		Where("status = ? AND time_limit_seconds > 0", models.AttemptInProgress).
		Where("started_at + make_interval(secs => time_limit_seconds) < ?", now).
		Order("started_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to list overdue attempts: %w", err)
	}
	return attempts, nil
}

// UpdateStatus moves the attempt only if it is still in the from state.
func (a *AttemptPostgreSQL) UpdateStatus(ctx context.Context, id uint, from, to models.AttemptStatus) (bool, error) {
	result := a.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (a *AttemptPostgreSQL) GetEvaluationStats(ctx context.Context, evaluationID uint) (*models.EvaluationStats, error) {
	stats := &models.EvaluationStats{
		EvaluationID: evaluationID,
		ByStatus:     make(map[models.AttemptStatus]int64),
	}

	var rows []struct {
		Status models.AttemptStatus
		Count  int64
	}
	if err := a.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Select("status, COUNT(*) AS count").
		Where("evaluation_id = ?", evaluationID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count attempts by status: %w", err)
	}
	for _, row := range rows {
		stats.ByStatus[row.Status] = row.Count
		stats.TotalAttempts += row.Count
	}

	if err := a.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("evaluation_id = ?", evaluationID).
		Distinct("student_id").
		Count(&stats.DistinctStudents).Error; err != nil {
		return nil, fmt.Errorf("failed to count students: %w", err)
	}

	var avg *float64
	if err := a.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Select("AVG(score / NULLIF(max_score, 0) * 100)").
		Where("evaluation_id = ? AND status = ? AND score IS NOT NULL", evaluationID, models.AttemptGraded).
		Scan(&avg).Error; err != nil {
		return nil, fmt.Errorf("failed to average scores: %w", err)
	}
	if avg != nil {
		stats.AverageScore = *avg
	}

	if err := a.db.WithContext(ctx).
		Model(&models.Grade{}).
		Where("evaluation_id = ? AND status IN ?", evaluationID, []models.GradeStatus{models.GradePending, models.GradeInReview}).
		Count(&stats.PendingGrades).Error; err != nil {
		return nil, fmt.Errorf("failed to count pending grades: %w", err)
	}

	return stats, nil
}

// ===== ANSWERS =====

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

func (ar *AnswerPostgreSQL) Upsert(ctx context.Context, answers []models.Answer) error {
	if len(answers) == 0 {
		return nil
	}
	return ar.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"selected_option_ids", "text", "awarded_score", "outcome", "updated_at",
			}),
		}).
		Create(&answers).Error
}

func (ar *AnswerPostgreSQL) ListByAttempt(ctx context.Context, attemptID uint) ([]models.Answer, error) {
	var answers []models.Answer
	if err := ar.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("question_id ASC").
		Find(&answers).Error; err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	return answers, nil
}
