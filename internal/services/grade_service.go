package services

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/evaluation-service/internal/cache"
	"github.com/SAP-F-2025/evaluation-service/internal/events"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
	"github.com/SAP-F-2025/evaluation-service/internal/utils"
)

// DefaultMaxScoreFallback bounds scores of attempts that carry no max score.
const DefaultMaxScoreFallback = 10.0

type GradingConfig struct {
	PassThreshold    float64
	MaxScoreFallback float64
}

type gradeService struct {
	Dependencies
	cfg      GradingConfig
	progress *progressService
}

func NewGradeService(deps Dependencies, cfg GradingConfig, progress ProgressService) GradeService {
	p, _ := progress.(*progressService)
	return newGradeService(deps.withDefaults(), cfg, p)
}

func newGradeService(deps Dependencies, cfg GradingConfig, progress *progressService) *gradeService {
	if cfg.PassThreshold == 0 {
		cfg.PassThreshold = models.DefaultPassThreshold
	}
	if cfg.MaxScoreFallback <= 0 {
		cfg.MaxScoreFallback = DefaultMaxScoreFallback
	}
	return &gradeService{Dependencies: deps, cfg: cfg, progress: progress}
}

// ===== GRADING WORKFLOW =====

func (s *gradeService) Grade(ctx context.Context, subject Subject, attemptID uint, req *GradeRequest) (*models.Grade, error) {
	s.Logger.Info("Grading attempt",
		"attempt_id", attemptID,
		"grader_id", subject.ID)

	if err := s.validate(req); err != nil {
		return nil, err
	}

	var (
		grade   *models.Grade
		attempt *models.Attempt
	)
	err := s.Repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		var err error
		attempt, err = tx.Attempt().GetByIDForUpdate(ctx, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return fmt.Errorf("failed to lock attempt: %w", err)
		}

		path, err := loadEvaluationPath(ctx, tx, attempt.EvaluationID)
		if err != nil {
			return err
		}
		if err := s.Policy.Authorize(ctx, subject, ActionGradeWrite, path.resource("attempt", attempt.ID, attempt.StudentID)); err != nil {
			return err
		}

		if _, err := tx.Grade().GetByAttempt(ctx, attempt.ID); err == nil {
			return ErrGradeExists
		} else if !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to check existing grade: %w", err)
		}

		if err := ensureNotArchived(path); err != nil {
			return err
		}
		if attempt.Status == models.AttemptInProgress || attempt.Status == models.AttemptVoid {
			return ErrAttemptNotGradable
		}

		maxScore := s.maxScoreOf(attempt)
		score := *req.Score
		if verrs := s.Validator.GetBusinessValidator().ValidateScore(score, maxScore); len(verrs) > 0 {
			return invalidArgument(verrs)
		}

		now := s.Clock()
		grade = &models.Grade{
			AttemptID:     attempt.ID,
			EvaluationID:  attempt.EvaluationID,
			StudentID:     attempt.StudentID,
			GraderID:      subject.ID,
			MaxScore:      maxScore,
			PassThreshold: s.passThresholdOf(path.Evaluation),
			Feedback:      req.Feedback,
			Rubric:        toRubric(req.Rubric),
			Status:        models.GradePending,
		}
		setScore(grade, score)

		if err := tx.Grade().Create(ctx, grade); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrGradeExists
			}
			return fmt.Errorf("failed to create grade: %w", err)
		}

		attempt.Score = &score
		if attempt.MaxScore == nil {
			attempt.MaxScore = &maxScore
		}
		attempt.Status = models.AttemptGraded
		attempt.GradedAt = &now
		attempt.GradeID = &grade.ID
		if err := tx.Attempt().Update(ctx, attempt); err != nil {
			return fmt.Errorf("failed to update attempt: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Attempt graded",
		"attempt_id", attemptID,
		"grade_id", grade.ID,
		"score", grade.Score,
		"percentage", grade.Percentage)

	gradeID := grade.ID
	s.publish(ctx, []*events.Event{events.NewEvent(events.AttemptGraded, grade.StudentID, events.AttemptGradedData{
		AttemptID:    grade.AttemptID,
		EvaluationID: grade.EvaluationID,
		StudentID:    grade.StudentID,
		Score:        grade.Score,
		MaxScore:     grade.MaxScore,
		GradeID:      &gradeID,
	})})
	cache.InvalidateEvaluationStats(ctx, s.Cache, grade.EvaluationID)

	return grade, nil
}

// UpdatePartial changes the set fields only. A published grade goes back to
// in_review and leaves course progress until it is published again.
func (s *gradeService) UpdatePartial(ctx context.Context, subject Subject, gradeID uint, req *UpdateGradeRequest) (*models.Grade, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	var (
		grade   *models.Grade
		outcome *progressOutcome
	)
	err := s.Repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		var (
			path *hierarchyPath
			err  error
		)
		grade, path, err = s.loadForWrite(ctx, tx, subject, gradeID, ActionGradeWrite)
		if err != nil {
			return err
		}
		if grade.Status == models.GradeVoid {
			return ErrGradeVoid
		}
		if err := ensureNotArchived(path); err != nil {
			return err
		}

		if req.Score != nil {
			if verrs := s.Validator.GetBusinessValidator().ValidateScore(*req.Score, grade.MaxScore); len(verrs) > 0 {
				return invalidArgument(verrs)
			}
			setScore(grade, *req.Score)
		}
		if req.Feedback != nil {
			grade.Feedback = req.Feedback
		}
		if req.Rubric != nil {
			grade.Rubric = toRubric(req.Rubric)
		}

		wasPublished := grade.IsPublished()
		if wasPublished {
			grade.Status = models.GradeInReview
			grade.PublishedAt = nil
		}
		grade.GraderID = subject.ID

		if err := tx.Grade().Update(ctx, grade); err != nil {
			return fmt.Errorf("failed to update grade: %w", err)
		}

		if req.Score != nil {
			if err := s.syncAttemptScore(ctx, tx, grade); err != nil {
				return err
			}
		}

		if wasPublished && s.progress != nil {
			outcome, err = s.progress.recomputeInTx(ctx, tx, grade.EvaluationID, grade.StudentID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Grade updated",
		"grade_id", gradeID,
		"status", grade.Status,
		"score", grade.Score)

	cache.InvalidateEvaluationStats(ctx, s.Cache, grade.EvaluationID)
	if s.progress != nil {
		s.progress.afterRecompute(ctx, outcome)
	}
	return grade, nil
}

// Publish releases the grade to the student and refreshes course progress in
// the same transaction.
func (s *gradeService) Publish(ctx context.Context, subject Subject, gradeID uint) (*models.Grade, error) {
	var (
		grade   *models.Grade
		outcome *progressOutcome
		changed bool
	)
	err := s.Repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		var (
			path *hierarchyPath
			err  error
		)
		grade, path, err = s.loadForWrite(ctx, tx, subject, gradeID, ActionGradePublish)
		if err != nil {
			return err
		}
		if grade.Status == models.GradeVoid {
			return ErrGradeVoid
		}
		if grade.IsPublished() {
			return nil
		}
		if err := ensureNotArchived(path); err != nil {
			return err
		}

		now := s.Clock()
		grade.Status = models.GradePublished
		grade.PublishedAt = &now
		if err := tx.Grade().Update(ctx, grade); err != nil {
			return fmt.Errorf("failed to publish grade: %w", err)
		}
		changed = true

		if s.progress != nil {
			outcome, err = s.progress.recomputeInTx(ctx, tx, grade.EvaluationID, grade.StudentID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return grade, nil
	}

	s.Logger.Info("Grade published",
		"grade_id", grade.ID,
		"attempt_id", grade.AttemptID,
		"student_id", grade.StudentID)

	s.publish(ctx, []*events.Event{events.NewEvent(events.GradePublished, grade.StudentID, events.GradePublishedData{
		GradeID:      grade.ID,
		AttemptID:    grade.AttemptID,
		EvaluationID: grade.EvaluationID,
		StudentID:    grade.StudentID,
		Score:        grade.Score,
		Percentage:   grade.Percentage,
		Passed:       grade.Passed,
		PublishedAt:  *grade.PublishedAt,
	})})
	if s.progress != nil {
		s.progress.afterRecompute(ctx, outcome)
	}
	return grade, nil
}

// Delete removes the grade whatever its status. The attempt returns to
// submitted so it can be graded again.
func (s *gradeService) Delete(ctx context.Context, subject Subject, gradeID uint) error {
	var (
		grade   *models.Grade
		outcome *progressOutcome
	)
	err := s.Repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		var err error
		grade, _, err = s.loadForWrite(ctx, tx, subject, gradeID, ActionGradeWrite)
		if err != nil {
			return err
		}

		if err := tx.Grade().Delete(ctx, grade.ID); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrGradeNotFound
			}
			return fmt.Errorf("failed to delete grade: %w", err)
		}

		attempt, err := tx.Attempt().GetByIDForUpdate(ctx, grade.AttemptID)
		if err != nil && !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to lock attempt: %w", err)
		}
		if attempt != nil && attempt.GradeID != nil && *attempt.GradeID == grade.ID {
			attempt.GradeID = nil
			attempt.GradedAt = nil
			attempt.Status = models.AttemptSubmitted
			if err := tx.Attempt().Update(ctx, attempt); err != nil {
				return fmt.Errorf("failed to unlink attempt: %w", err)
			}
		}

		if grade.IsPublished() && s.progress != nil {
			outcome, err = s.progress.recomputeInTx(ctx, tx, grade.EvaluationID, grade.StudentID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Logger.Info("Grade deleted",
		"grade_id", gradeID,
		"attempt_id", grade.AttemptID,
		"deleted_by", subject.ID)

	cache.InvalidateEvaluationStats(ctx, s.Cache, grade.EvaluationID)
	if s.progress != nil {
		s.progress.afterRecompute(ctx, outcome)
	}
	return nil
}

// ===== QUERIES =====

func (s *gradeService) GetByID(ctx context.Context, subject Subject, gradeID uint) (*models.Grade, error) {
	grade, err := s.Repo.Grade().GetByID(ctx, gradeID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrGradeNotFound
		}
		return nil, fmt.Errorf("failed to get grade: %w", err)
	}
	return s.authorizeView(ctx, subject, grade)
}

func (s *gradeService) GetByAttempt(ctx context.Context, subject Subject, attemptID uint) (*models.Grade, error) {
	grade, err := s.Repo.Grade().GetByAttempt(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrGradeNotFound
		}
		return nil, fmt.Errorf("failed to get grade: %w", err)
	}
	return s.authorizeView(ctx, subject, grade)
}

// ===== HELPERS =====

// authorizeView lets students see their own grades only once published
func (s *gradeService) authorizeView(ctx context.Context, subject Subject, grade *models.Grade) (*models.Grade, error) {
	path, err := loadEvaluationPath(ctx, s.Repo, grade.EvaluationID)
	if err != nil {
		return nil, err
	}
	if err := s.Policy.Authorize(ctx, subject, ActionGradeView, path.resource("grade", grade.ID, grade.StudentID)); err != nil {
		return nil, err
	}
	if grade.StudentID == subject.ID && !subject.Role.IsStaff() && !grade.IsPublished() {
		return nil, ErrGradeNotFound
	}
	return grade, nil
}

func (s *gradeService) loadForWrite(ctx context.Context, tx repositories.Repository, subject Subject, gradeID uint, action Action) (*models.Grade, *hierarchyPath, error) {
	grade, err := tx.Grade().GetByID(ctx, gradeID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrGradeNotFound
		}
		return nil, nil, fmt.Errorf("failed to get grade: %w", err)
	}

	path, err := loadEvaluationPath(ctx, tx, grade.EvaluationID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.Policy.Authorize(ctx, subject, action, path.resource("grade", grade.ID, grade.StudentID)); err != nil {
		return nil, nil, err
	}
	return grade, path, nil
}

func (s *gradeService) syncAttemptScore(ctx context.Context, tx repositories.Repository, grade *models.Grade) error {
	attempt, err := tx.Attempt().GetByIDForUpdate(ctx, grade.AttemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAttemptNotFound
		}
		return fmt.Errorf("failed to lock attempt: %w", err)
	}

	score := grade.Score
	attempt.Score = &score
	if err := tx.Attempt().Update(ctx, attempt); err != nil {
		return fmt.Errorf("failed to sync attempt score: %w", err)
	}
	return nil
}

func (s *gradeService) maxScoreOf(attempt *models.Attempt) float64 {
	if attempt.MaxScore == nil {
		return s.cfg.MaxScoreFallback
	}
	return *attempt.MaxScore
}

func (s *gradeService) passThresholdOf(evaluation *models.Evaluation) float64 {
	if evaluation.PassThreshold > 0 {
		return evaluation.PassThreshold
	}
	return s.cfg.PassThreshold
}

func setScore(grade *models.Grade, score float64) {
	grade.Score = score
	grade.Percentage = utils.Percentage(score, grade.MaxScore)
	grade.Passed = grade.Percentage >= grade.PassThreshold
}

func toRubric(items []RubricItemInput) []models.RubricItem {
	if items == nil {
		return nil
	}
	rubric := make([]models.RubricItem, 0, len(items))
	for _, item := range items {
		rubric = append(rubric, item.ToModel())
	}
	return rubric
}
