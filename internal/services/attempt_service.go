package services

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/evaluation-service/internal/cache"
	"github.com/SAP-F-2025/evaluation-service/internal/events"
	"github.com/SAP-F-2025/evaluation-service/internal/grading"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

// overdueBatchSize bounds one ExpireOverdue sweep
const overdueBatchSize = 500

type attemptService struct {
	Dependencies
	engine   *grading.Engine
	progress *progressService
}

// NewAttemptService wires course progress refreshes when progress is the
// service returned by NewProgressService.
func NewAttemptService(deps Dependencies, engine *grading.Engine, progress ProgressService) AttemptService {
	p, _ := progress.(*progressService)
	return newAttemptService(deps.withDefaults(), engine, p)
}

func newAttemptService(deps Dependencies, engine *grading.Engine, progress *progressService) *attemptService {
	if engine == nil {
		engine = grading.NewEngine()
	}
	return &attemptService{
		Dependencies: deps,
		engine:       engine,
		progress:     progress,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

func (s *attemptService) Start(ctx context.Context, subject Subject, req *StartAttemptRequest) (*models.Attempt, error) {
	s.Logger.Info("Starting evaluation attempt",
		"evaluation_id", req.EvaluationID,
		"student_id", subject.ID)

	if err := s.validate(req); err != nil {
		return nil, err
	}

	path, err := loadEvaluationPath(ctx, s.Repo, req.EvaluationID)
	if err != nil {
		return nil, err
	}
	if err := s.Policy.Authorize(ctx, subject, ActionAttemptStart, Resource{Kind: "evaluation", ID: req.EvaluationID, OwnerID: subject.ID}); err != nil {
		return nil, err
	}
	if err := ensureNotArchived(path); err != nil {
		return nil, err
	}

	evaluation := path.Evaluation
	attempt := &models.Attempt{
		EvaluationID:     evaluation.ID,
		StudentID:        subject.ID,
		Status:           models.AttemptInProgress,
		TimeLimitSeconds: evaluation.TimeLimitSeconds,
		StartedAt:        s.Clock(),
		Score:            new(float64),
	}
	if req.TimeLimitSeconds != nil {
		attempt.TimeLimitSeconds = *req.TimeLimitSeconds
	}
	switch {
	case req.MaxScore != nil:
		maxScore := *req.MaxScore
		attempt.MaxScore = &maxScore
	case evaluation.MaxScore > 0:
		maxScore := evaluation.MaxScore
		attempt.MaxScore = &maxScore
	}

	err = s.Repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		inProgress, err := tx.Attempt().HasInProgress(ctx, evaluation.ID, subject.ID)
		if err != nil {
			return fmt.Errorf("failed to check in-progress attempts: %w", err)
		}
		if inProgress {
			return ErrAttemptInProgress
		}

		last, err := tx.Attempt().GetMaxAttemptNumber(ctx, evaluation.ID, subject.ID)
		if err != nil {
			return fmt.Errorf("failed to get attempt number: %w", err)
		}
		attempt.AttemptNumber = last + 1

		if err := tx.Attempt().Create(ctx, attempt); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrAttemptInProgress
			}
			return fmt.Errorf("failed to create attempt: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Evaluation attempt started",
		"attempt_id", attempt.ID,
		"attempt_number", attempt.AttemptNumber,
		"evaluation_id", evaluation.ID,
		"student_id", subject.ID)

	return attempt, nil
}

func (s *attemptService) UpdateAnswers(ctx context.Context, subject Subject, attemptID uint, req *UpdateAnswersRequest) (*models.Attempt, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	var attempt *models.Attempt
	err := s.Repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		var err error
		attempt, err = s.lockAttempt(ctx, tx, attemptID)
		if err != nil {
			return err
		}
		if attempt.Status != models.AttemptInProgress || !attempt.IsOwnedBy(subject.ID) {
			return ErrAttemptNotEditable
		}

		evaluation, err := s.openEvaluation(ctx, tx, attempt.EvaluationID)
		if err != nil {
			return err
		}
		if err := s.checkInput(attempt, evaluation, req.Answers, req.UsedTimeSeconds); err != nil {
			return err
		}

		if req.UsedTimeSeconds != nil {
			attempt.UsedTimeSeconds = *req.UsedTimeSeconds
		}
		if len(req.Answers) > 0 {
			if err := tx.Answer().Upsert(ctx, toAnswers(attempt.ID, req.Answers)); err != nil {
				return fmt.Errorf("failed to save answers: %w", err)
			}
		}
		if err := tx.Attempt().Update(ctx, attempt); err != nil {
			return fmt.Errorf("failed to update attempt: %w", err)
		}

		attempt.Answers, err = tx.Answer().ListByAttempt(ctx, attempt.ID)
		if err != nil {
			return fmt.Errorf("failed to list answers: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Debug("Attempt answers saved",
		"attempt_id", attemptID,
		"answers", len(req.Answers))

	return attempt, nil
}

// Submit closes the attempt and auto-grades it in the same transaction.
// Attempts without manual questions end graded and feed course progress.
func (s *attemptService) Submit(ctx context.Context, subject Subject, attemptID uint, req *SubmitAttemptRequest, now time.Time) (*models.Attempt, error) {
	s.Logger.Info("Submitting evaluation attempt",
		"attempt_id", attemptID,
		"student_id", subject.ID)

	if err := s.validate(req); err != nil {
		return nil, err
	}

	var (
		attempt *models.Attempt
		result  grading.Result
		outcome *progressOutcome
	)
	err := s.Repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		var err error
		attempt, err = s.lockAttempt(ctx, tx, attemptID)
		if err != nil {
			return err
		}
		if !attempt.IsOwnedBy(subject.ID) {
			return ErrAttemptNotFound
		}
		if attempt.Status != models.AttemptInProgress {
			return ErrAttemptNotInProgress
		}

		evaluation, err := s.openEvaluation(ctx, tx, attempt.EvaluationID)
		if err != nil {
			return err
		}
		if err := s.checkInput(attempt, evaluation, req.Answers, req.UsedTimeSeconds); err != nil {
			return err
		}
		if req.UsedTimeSeconds != nil {
			attempt.UsedTimeSeconds = *req.UsedTimeSeconds
		}

		answers, err := s.mergeAnswers(ctx, tx, attempt.ID, req.Answers)
		if err != nil {
			return err
		}

		submittedAt := now
		attempt.Status = models.AttemptSubmitted
		attempt.SubmittedAt = &submittedAt

		result = s.engine.Grade(evaluation.Questions, answers)
		attempt.Answers = applyResult(attempt.ID, evaluation.Questions, answers, result)
		if err := tx.Answer().Upsert(ctx, attempt.Answers); err != nil {
			return fmt.Errorf("failed to save graded answers: %w", err)
		}

		score, maxScore := result.TotalScore, result.MaxScore
		attempt.Score = &score
		attempt.MaxScore = &maxScore
		if !result.HasManualQuestions {
			gradedAt := now
			attempt.Status = models.AttemptGraded
			attempt.GradedAt = &gradedAt
		}

		if err := tx.Attempt().Update(ctx, attempt); err != nil {
			return fmt.Errorf("failed to update attempt: %w", err)
		}

		if attempt.Status == models.AttemptGraded && s.progress != nil {
			outcome, err = s.progress.recomputeInTx(ctx, tx, attempt.EvaluationID, attempt.StudentID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("Evaluation attempt submitted",
		"attempt_id", attempt.ID,
		"status", attempt.Status,
		"score", result.TotalScore,
		"max_score", result.MaxScore,
		"needs_manual_grading", result.HasManualQuestions)

	pending := []*events.Event{events.NewEvent(events.AttemptSubmitted, attempt.StudentID, events.AttemptSubmittedData{
		AttemptID:     attempt.ID,
		EvaluationID:  attempt.EvaluationID,
		StudentID:     attempt.StudentID,
		AttemptNumber: attempt.AttemptNumber,
		SubmittedAt:   *attempt.SubmittedAt,
		NeedsManual:   result.HasManualQuestions,
	})}
	if attempt.Status == models.AttemptGraded {
		pending = append(pending, events.NewEvent(events.AttemptGraded, attempt.StudentID, events.AttemptGradedData{
			AttemptID:    attempt.ID,
			EvaluationID: attempt.EvaluationID,
			StudentID:    attempt.StudentID,
			Score:        result.TotalScore,
			MaxScore:     result.MaxScore,
			Automatic:    true,
		}))
	}
	s.publish(ctx, pending)
	cache.InvalidateEvaluationStats(ctx, s.Cache, attempt.EvaluationID)
	if s.progress != nil {
		s.progress.afterRecompute(ctx, outcome)
	}

	return attempt, nil
}

// DeleteIfOwnInProgress voids the student's own open attempt
func (s *attemptService) DeleteIfOwnInProgress(ctx context.Context, subject Subject, attemptID uint) error {
	attempt, err := s.getAttempt(ctx, s.Repo, attemptID)
	if err != nil {
		return err
	}
	if attempt.Status != models.AttemptInProgress || !attempt.IsOwnedBy(subject.ID) {
		return ErrAttemptNotEditable
	}

	changed, err := s.Repo.Attempt().UpdateStatus(ctx, attemptID, models.AttemptInProgress, models.AttemptVoid)
	if err != nil {
		return fmt.Errorf("failed to void attempt: %w", err)
	}
	if !changed {
		// submitted or expired in between
		return ErrAttemptNotEditable
	}

	s.Logger.Info("Attempt voided by student",
		"attempt_id", attemptID,
		"student_id", subject.ID)
	cache.InvalidateEvaluationStats(ctx, s.Cache, attempt.EvaluationID)
	return nil
}

// ===== QUERIES =====

func (s *attemptService) GetByID(ctx context.Context, subject Subject, attemptID uint) (*models.Attempt, error) {
	attempt, err := s.Repo.Attempt().GetByIDWithAnswers(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.IsOwnedBy(subject.ID) {
		return attempt, nil
	}

	path, err := loadEvaluationPath(ctx, s.Repo, attempt.EvaluationID)
	if err != nil {
		return nil, err
	}
	if err := s.Policy.Authorize(ctx, subject, ActionAttemptView, path.resource("attempt", attempt.ID, attempt.StudentID)); err != nil {
		return nil, err
	}
	return attempt, nil
}

func (s *attemptService) ListForStudent(ctx context.Context, subject Subject, evaluationID uint, studentID string) ([]*models.Attempt, error) {
	if studentID == "" {
		studentID = subject.ID
	}

	path, err := loadEvaluationPath(ctx, s.Repo, evaluationID)
	if err != nil {
		return nil, err
	}
	if err := s.Policy.Authorize(ctx, subject, ActionAttemptList, path.resource("evaluation", evaluationID, studentID)); err != nil {
		return nil, err
	}

	attempts, err := s.Repo.Attempt().ListByEvaluationAndStudent(ctx, evaluationID, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}

func (s *attemptService) ListByEvaluation(ctx context.Context, subject Subject, evaluationID uint, filters repositories.AttemptFilters) (*AttemptListResponse, error) {
	path, err := loadEvaluationPath(ctx, s.Repo, evaluationID)
	if err != nil {
		return nil, err
	}
	if err := s.Policy.Authorize(ctx, subject, ActionAttemptList, path.resource("evaluation", evaluationID, "")); err != nil {
		return nil, err
	}

	if filters.Limit <= 0 {
		filters.Limit = 20
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}

	attempts, total, err := s.Repo.Attempt().ListByEvaluation(ctx, evaluationID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	return &AttemptListResponse{
		Attempts: attempts,
		Total:    total,
		Limit:    filters.Limit,
		Offset:   filters.Offset,
	}, nil
}

func (s *attemptService) GetEvaluationStats(ctx context.Context, subject Subject, evaluationID uint) (*models.EvaluationStats, error) {
	path, err := loadEvaluationPath(ctx, s.Repo, evaluationID)
	if err != nil {
		return nil, err
	}
	if err := s.Policy.Authorize(ctx, subject, ActionEvaluationStats, path.resource("evaluation", evaluationID, "")); err != nil {
		return nil, err
	}

	var stats models.EvaluationStats
	err = s.Cache.Stats.CacheOrExecute(ctx, cache.EvaluationStatsKey(evaluationID), &stats, cache.StatsCacheConfig.TTL, func() (any, error) {
		return s.Repo.Attempt().GetEvaluationStats(ctx, evaluationID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation stats: %w", err)
	}
	return &stats, nil
}

// ===== POLICY HOOKS =====

func (s *attemptService) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	overdue, err := s.Repo.Attempt().ListOverdue(ctx, now, overdueBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue attempts: %w", err)
	}

	expired := 0
	for _, attempt := range overdue {
		changed, err := s.Repo.Attempt().UpdateStatus(ctx, attempt.ID, models.AttemptInProgress, models.AttemptExpired)
		if err != nil {
			s.Logger.Error("Failed to expire attempt",
				"attempt_id", attempt.ID,
				"error", err)
			continue
		}
		if changed {
			expired++
			cache.InvalidateEvaluationStats(ctx, s.Cache, attempt.EvaluationID)
		}
	}

	if expired > 0 {
		s.Logger.Info("Expired overdue attempts", "count", expired)
	}
	return expired, nil
}
