package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SAP-F-2025/evaluation-service/internal/cache"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

type ProgressConfig struct {
	PassThreshold float64
	MaxRetries    int
	CacheTTL      time.Duration
}

type progressService struct {
	Dependencies
	engine       *progressEngine
	certificates CertificateIssuer
	cacheTTL     time.Duration
}

func NewProgressService(deps Dependencies, cfg ProgressConfig, certificates CertificateIssuer) ProgressService {
	return newProgressService(deps.withDefaults(), cfg, certificates)
}

func newProgressService(deps Dependencies, cfg ProgressConfig, certificates CertificateIssuer) *progressService {
	if cfg.PassThreshold == 0 {
		cfg.PassThreshold = models.DefaultPassThreshold
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 3
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = cache.ProgressCacheConfig.TTL
	}
	return &progressService{
		Dependencies: deps,
		engine: &progressEngine{
			passThreshold: cfg.PassThreshold,
			maxRetries:    cfg.MaxRetries,
			clock:         deps.Clock,
			logger:        deps.Logger,
		},
		certificates: certificates,
		cacheTTL:     cfg.CacheTTL,
	}
}

// ===== CORE AGGREGATION =====

func (s *progressService) ComputeCourseProgress(ctx context.Context, courseID uint, studentID string, persist bool) (*models.ProgressReport, error) {
	s.Logger.Debug("Computing course progress",
		"course_id", courseID,
		"student_id", studentID,
		"persist", persist)

	if !persist {
		outcome, err := s.engine.compute(ctx, s.Repo, courseID, studentID, false)
		if err != nil {
			return nil, err
		}
		return outcome.Report, nil
	}

	var outcome *progressOutcome
	err := s.Repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		var err error
		outcome, err = s.engine.compute(ctx, tx, courseID, studentID, true)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterRecompute(ctx, outcome)
	return outcome.Report, nil
}

// recomputeInTx is the entry point used by attempt and grade transitions.
// A student without enrollment has no progress to maintain.
func (s *progressService) recomputeInTx(ctx context.Context, tx repositories.Repository, evaluationID uint, studentID string) (*progressOutcome, error) {
	courseID, err := tx.Hierarchy().CourseIDForEvaluation(ctx, evaluationID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to resolve course: %w", err)
	}

	outcome, err := s.engine.compute(ctx, tx, courseID, studentID, true)
	if errors.Is(err, ErrEnrollmentNotFound) {
		s.Logger.Warn("Skipping progress recompute for student without enrollment",
			"course_id", courseID,
			"student_id", studentID)
		return nil, nil
	}
	return outcome, err
}

// afterRecompute runs once the transaction holding the recompute committed:
// it drops cached reports, publishes completion and issues the certificate.
func (s *progressService) afterRecompute(ctx context.Context, outcome *progressOutcome) {
	if outcome == nil {
		return
	}
	report := outcome.Report

	cache.InvalidateProgressCache(ctx, s.Cache, report.CourseID, report.StudentID)
	s.publish(ctx, outcome.events())

	if !report.Passed || !report.Completed || report.FinalGrade == nil || s.certificates == nil {
		return
	}
	if _, err := s.certificates.Issue(ctx, report.CourseID, report.StudentID, *report.FinalGrade); err != nil && !errors.Is(err, ErrCertificateIssued) {
		s.Logger.Error("Failed to issue certificate",
			"course_id", report.CourseID,
			"student_id", report.StudentID,
			"error", err)
	}
}

// ===== VIEWS =====

func (s *progressService) GetMyProgress(ctx context.Context, subject Subject, courseID uint) (*models.ProgressReport, error) {
	if err := s.Policy.Authorize(ctx, subject, ActionProgressView, Resource{Kind: "course", ID: courseID, OwnerID: subject.ID}); err != nil {
		return nil, err
	}
	return s.ComputeCourseProgress(ctx, courseID, subject.ID, true)
}

func (s *progressService) GetStudentProgress(ctx context.Context, subject Subject, courseID uint, studentID string) (*models.ProgressReport, error) {
	if err := s.authorizeCourse(ctx, subject, ActionProgressView, courseID, studentID); err != nil {
		return nil, err
	}

	var report models.ProgressReport
	err := s.Cache.Progress.CacheOrExecute(ctx, cache.ProgressKey(courseID, studentID), &report, s.cacheTTL, func() (any, error) {
		return s.ComputeCourseProgress(ctx, courseID, studentID, false)
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// ===== OVERRIDES =====

func (s *progressService) SetModuleOverride(ctx context.Context, subject Subject, courseID, moduleID uint, studentID string, req *ModuleOverrideRequest) (*models.ModulePassOverride, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if err := s.authorizeCourse(ctx, subject, ActionProgressOverride, courseID, ""); err != nil {
		return nil, err
	}
	if err := s.ensureModuleInCourse(ctx, courseID, moduleID); err != nil {
		return nil, err
	}

	override := &models.ModulePassOverride{
		ModuleID:  moduleID,
		StudentID: studentID,
		Passed:    *req.Passed,
		Reason:    req.Reason,
		SetBy:     subject.ID,
	}

	var outcome *progressOutcome
	err := s.Repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.ModuleOverride().Upsert(ctx, override); err != nil {
			return fmt.Errorf("failed to save module override: %w", err)
		}
		var err error
		outcome, err = s.engine.compute(ctx, tx, courseID, studentID, true)
		if errors.Is(err, ErrEnrollmentNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Module pass override set",
		"course_id", courseID,
		"module_id", moduleID,
		"student_id", studentID,
		"passed", override.Passed,
		"set_by", subject.ID)

	cache.InvalidateProgressCache(ctx, s.Cache, courseID, studentID)
	s.afterRecompute(ctx, outcome)
	return override, nil
}

func (s *progressService) ClearModuleOverride(ctx context.Context, subject Subject, courseID, moduleID uint, studentID string) error {
	if err := s.authorizeCourse(ctx, subject, ActionProgressOverride, courseID, ""); err != nil {
		return err
	}
	if err := s.ensureModuleInCourse(ctx, courseID, moduleID); err != nil {
		return err
	}

	var outcome *progressOutcome
	err := s.Repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.ModuleOverride().Delete(ctx, moduleID, studentID); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrOverrideNotFound
			}
			return fmt.Errorf("failed to delete module override: %w", err)
		}
		var err error
		outcome, err = s.engine.compute(ctx, tx, courseID, studentID, true)
		if errors.Is(err, ErrEnrollmentNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}

	cache.InvalidateProgressCache(ctx, s.Cache, courseID, studentID)
	s.afterRecompute(ctx, outcome)
	return nil
}

// ===== HELPERS =====

func (s *progressService) authorizeCourse(ctx context.Context, subject Subject, action Action, courseID uint, ownerID string) error {
	course, err := s.Repo.Hierarchy().GetCourse(ctx, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrCourseNotFound
		}
		return fmt.Errorf("failed to get course: %w", err)
	}

	resource := Resource{Kind: "course", ID: courseID, OwnerID: ownerID}
	if course.CreatedBy != "" {
		resource.ManagerIDs = []string{course.CreatedBy}
	}
	return s.Policy.Authorize(ctx, subject, action, resource)
}

func (s *progressService) ensureModuleInCourse(ctx context.Context, courseID, moduleID uint) error {
	module, err := s.Repo.Hierarchy().GetModule(ctx, moduleID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrModuleNotFound
		}
		return fmt.Errorf("failed to get module: %w", err)
	}
	if module.CourseID != courseID {
		return ErrModuleNotFound
	}
	return nil
}
