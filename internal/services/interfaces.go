package services

import (
	"context"
	"time"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"github.com/SAP-F-2025/evaluation-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

type StartAttemptRequest = validator.StartAttemptRequest
type UpdateAnswersRequest = validator.UpdateAnswersRequest
type SubmitAttemptRequest = validator.SubmitAttemptRequest
type AnswerInput = validator.AnswerInput
type GradeRequest = validator.GradeRequest
type RubricItemInput = validator.RubricItemInput
type UpdateGradeRequest = validator.UpdateGradeRequest
type ModuleOverrideRequest = validator.ModuleOverrideRequest

type AttemptListResponse struct {
	Attempts []*models.Attempt `json:"attempts"`
	Total    int64             `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// ===== SERVICES =====

type AttemptService interface {
	Start(ctx context.Context, subject Subject, req *StartAttemptRequest) (*models.Attempt, error)
	UpdateAnswers(ctx context.Context, subject Subject, attemptID uint, req *UpdateAnswersRequest) (*models.Attempt, error)
	Submit(ctx context.Context, subject Subject, attemptID uint, req *SubmitAttemptRequest, now time.Time) (*models.Attempt, error)
	DeleteIfOwnInProgress(ctx context.Context, subject Subject, attemptID uint) error

	GetByID(ctx context.Context, subject Subject, attemptID uint) (*models.Attempt, error)
	ListForStudent(ctx context.Context, subject Subject, evaluationID uint, studentID string) ([]*models.Attempt, error)
	ListByEvaluation(ctx context.Context, subject Subject, evaluationID uint, filters repositories.AttemptFilters) (*AttemptListResponse, error)
	GetEvaluationStats(ctx context.Context, subject Subject, evaluationID uint) (*models.EvaluationStats, error)

	// ExpireOverdue moves in-progress attempts past their time limit to expired.
	ExpireOverdue(ctx context.Context, now time.Time) (int, error)
}

type GradeService interface {
	Grade(ctx context.Context, subject Subject, attemptID uint, req *GradeRequest) (*models.Grade, error)
	UpdatePartial(ctx context.Context, subject Subject, gradeID uint, req *UpdateGradeRequest) (*models.Grade, error)
	Publish(ctx context.Context, subject Subject, gradeID uint) (*models.Grade, error)
	Delete(ctx context.Context, subject Subject, gradeID uint) error

	GetByID(ctx context.Context, subject Subject, gradeID uint) (*models.Grade, error)
	GetByAttempt(ctx context.Context, subject Subject, attemptID uint) (*models.Grade, error)
}

type ProgressService interface {
	// ComputeCourseProgress aggregates the student's grades over the course.
	// With persist the enrollment is updated under its version check.
	ComputeCourseProgress(ctx context.Context, courseID uint, studentID string, persist bool) (*models.ProgressReport, error)

	// GetMyProgress is the student's own view and persists the result.
	GetMyProgress(ctx context.Context, subject Subject, courseID uint) (*models.ProgressReport, error)
	// GetStudentProgress is the read-only staff view.
	GetStudentProgress(ctx context.Context, subject Subject, courseID uint, studentID string) (*models.ProgressReport, error)

	SetModuleOverride(ctx context.Context, subject Subject, courseID, moduleID uint, studentID string, req *ModuleOverrideRequest) (*models.ModulePassOverride, error)
	ClearModuleOverride(ctx context.Context, subject Subject, courseID, moduleID uint, studentID string) error
}

// CertificateIssuer issues the course certificate once a student passes.
type CertificateIssuer interface {
	Issue(ctx context.Context, courseID uint, studentID string, finalGrade float64) (*models.Certificate, error)
}

type ExportService interface {
	// ExportEvaluationGrades renders the gradebook of an evaluation as XLSX.
	ExportEvaluationGrades(ctx context.Context, subject Subject, evaluationID uint) ([]byte, error)
}

type ServiceManager interface {
	Attempt() AttemptService
	Grade() GradeService
	Progress() ProgressService
	Certificate() CertificateIssuer
	Export() ExportService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
