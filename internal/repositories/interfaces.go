package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

// ===== FILTERS =====

// AttemptFilters narrows instructor listings of attempts.
type AttemptFilters struct {
	Status    *models.AttemptStatus
	StudentID *string
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

// ===== HIERARCHY =====

// HierarchyRepository reads the course/module/lesson/evaluation tree owned by
// the catalog.
type HierarchyRepository interface {
	GetCourse(ctx context.Context, id uint) (*models.Course, error)
	GetModule(ctx context.Context, id uint) (*models.Module, error)
	GetLesson(ctx context.Context, id uint) (*models.Lesson, error)

	// GetCourseTree returns the course with modules and lessons ordered by position.
	GetCourseTree(ctx context.Context, courseID uint) (*models.Course, error)
	// CourseIDForEvaluation resolves the owning course of an evaluation.
	CourseIDForEvaluation(ctx context.Context, evaluationID uint) (uint, error)
}

// EvaluationRepository reads evaluations and their question bank.
type EvaluationRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Evaluation, error)
	// GetWithQuestions loads the question bank ordered by position.
	GetWithQuestions(ctx context.Context, id uint) (*models.Evaluation, error)
	ListByLessons(ctx context.Context, lessonIDs []uint) ([]*models.Evaluation, error)
}

// ===== ATTEMPTS =====

type AttemptRepository interface {
	// Create fails with ErrDuplicate when another attempt is in progress for the
	// pair or the attempt number is taken.
	Create(ctx context.Context, attempt *models.Attempt) error
	GetByID(ctx context.Context, id uint) (*models.Attempt, error)
	GetByIDWithAnswers(ctx context.Context, id uint) (*models.Attempt, error)
	// GetByIDForUpdate locks the attempt row until the transaction ends.
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Attempt, error)
	Update(ctx context.Context, attempt *models.Attempt) error

	GetMaxAttemptNumber(ctx context.Context, evaluationID uint, studentID string) (int, error)
	HasInProgress(ctx context.Context, evaluationID uint, studentID string) (bool, error)

	ListByEvaluationAndStudent(ctx context.Context, evaluationID uint, studentID string) ([]*models.Attempt, error)
	ListByEvaluation(ctx context.Context, evaluationID uint, filters AttemptFilters) ([]*models.Attempt, int64, error)
	// ListScoredForStudent returns graded attempts with a score for the given
	// evaluations, used by progress aggregation.
	ListScoredForStudent(ctx context.Context, studentID string, evaluationIDs []uint) ([]*models.Attempt, error)

	ListOverdue(ctx context.Context, now time.Time, limit int) ([]*models.Attempt, error)
	UpdateStatus(ctx context.Context, id uint, from, to models.AttemptStatus) (bool, error)

	GetEvaluationStats(ctx context.Context, evaluationID uint) (*models.EvaluationStats, error)
}

type AnswerRepository interface {
	// Upsert inserts or replaces answers keyed by (attempt, question).
	Upsert(ctx context.Context, answers []models.Answer) error
	ListByAttempt(ctx context.Context, attemptID uint) ([]models.Answer, error)
}

// ===== GRADES =====

type GradeRepository interface {
	// Create fails with ErrDuplicate when the attempt already has a grade.
	Create(ctx context.Context, grade *models.Grade) error
	GetByID(ctx context.Context, id uint) (*models.Grade, error)
	GetByAttempt(ctx context.Context, attemptID uint) (*models.Grade, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*models.Grade, error)
	ListByEvaluation(ctx context.Context, evaluationID uint) ([]*models.Grade, error)
	Update(ctx context.Context, grade *models.Grade) error
	Delete(ctx context.Context, id uint) error
}

// ===== ENROLLMENT & CERTIFICATES =====

type EnrollmentRepository interface {
	GetByCourseAndStudent(ctx context.Context, courseID uint, studentID string) (*models.Enrollment, error)
	// UpdateProgress writes the cached progress fields when the stored version
	// still matches enrollment.Version, returning ErrVersionConflict otherwise.
	// On success enrollment.Version holds the new version.
	UpdateProgress(ctx context.Context, enrollment *models.Enrollment) error
}

type ModuleOverrideRepository interface {
	ListForStudent(ctx context.Context, moduleIDs []uint, studentID string) ([]*models.ModulePassOverride, error)
	Upsert(ctx context.Context, override *models.ModulePassOverride) error
	Delete(ctx context.Context, moduleID uint, studentID string) error
}

type CertificateRepository interface {
	Exists(ctx context.Context, courseID uint, studentID string) (bool, error)
	// Create fails with ErrDuplicate when the student already holds one.
	Create(ctx context.Context, certificate *models.Certificate) error
	GetByCourseAndStudent(ctx context.Context, courseID uint, studentID string) (*models.Certificate, error)
}
