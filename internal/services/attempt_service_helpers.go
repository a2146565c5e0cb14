package services

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/evaluation-service/internal/grading"
	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/SAP-F-2025/evaluation-service/internal/repositories"
)

// ===== HELPER METHODS =====

func (s *attemptService) getAttempt(ctx context.Context, repo repositories.Repository, attemptID uint) (*models.Attempt, error) {
	attempt, err := repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return attempt, nil
}

func (s *attemptService) lockAttempt(ctx context.Context, tx repositories.Repository, attemptID uint) (*models.Attempt, error) {
	attempt, err := tx.Attempt().GetByIDForUpdate(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to lock attempt: %w", err)
	}
	return attempt, nil
}

func (s *attemptService) evaluationWithQuestions(ctx context.Context, repo repositories.Repository, evaluationID uint) (*models.Evaluation, error) {
	evaluation, err := repo.Evaluation().GetWithQuestions(ctx, evaluationID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEvaluationNotFound
		}
		return nil, fmt.Errorf("failed to get evaluation questions: %w", err)
	}
	return evaluation, nil
}

// openEvaluation loads the evaluation an in-progress attempt writes to and
// refuses it once any level of its hierarchy is archived.
func (s *attemptService) openEvaluation(ctx context.Context, repo repositories.Repository, evaluationID uint) (*models.Evaluation, error) {
	evaluation, err := s.evaluationWithQuestions(ctx, repo, evaluationID)
	if err != nil {
		return nil, err
	}
	path, err := loadHierarchy(ctx, repo, evaluation)
	if err != nil {
		return nil, err
	}
	if err := ensureNotArchived(path); err != nil {
		return nil, err
	}
	return evaluation, nil
}

// checkInput applies the time limit and the answer rules of the question bank
func (s *attemptService) checkInput(attempt *models.Attempt, evaluation *models.Evaluation, answers []AnswerInput, usedSeconds *int) error {
	bv := s.Validator.GetBusinessValidator()

	var verrs ValidationErrors
	if usedSeconds != nil {
		verrs = append(verrs, bv.ValidateUsedTime(*usedSeconds, attempt.TimeLimitSeconds)...)
	}
	verrs = append(verrs, bv.ValidateAnswers(answers, evaluation)...)

	if len(verrs) > 0 {
		return invalidArgument(verrs)
	}
	return nil
}

// mergeAnswers overlays the submitted answers on the stored ones, per question
func (s *attemptService) mergeAnswers(ctx context.Context, tx repositories.Repository, attemptID uint, inputs []AnswerInput) ([]models.Answer, error) {
	stored, err := tx.Answer().ListByAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}

	index := make(map[uint]int, len(stored))
	for i := range stored {
		index[stored[i].QuestionID] = i
	}
	for _, answer := range toAnswers(attemptID, inputs) {
		if i, ok := index[answer.QuestionID]; ok {
			stored[i].SelectedOptionIDs = answer.SelectedOptionIDs
			stored[i].Text = answer.Text
			continue
		}
		index[answer.QuestionID] = len(stored)
		stored = append(stored, answer)
	}
	return stored, nil
}

func toAnswers(attemptID uint, inputs []AnswerInput) []models.Answer {
	answers := make([]models.Answer, 0, len(inputs))
	for _, in := range inputs {
		answers = append(answers, models.Answer{
			AttemptID:         attemptID,
			QuestionID:        in.QuestionID,
			SelectedOptionIDs: in.SelectedOptionIDs,
			Text:              in.Text,
		})
	}
	return answers
}

// applyResult writes outcome and awarded points onto one answer per question,
// creating rows for questions the student skipped. Questions waiting for an
// instructor keep a nil AwardedScore.
func applyResult(attemptID uint, questions []models.Question, answers []models.Answer, result grading.Result) []models.Answer {
	byQuestion := make(map[uint]models.Answer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	graded := make([]models.Answer, 0, len(questions))
	for _, q := range questions {
		answer, ok := byQuestion[q.ID]
		if !ok {
			answer = models.Answer{AttemptID: attemptID, QuestionID: q.ID}
		}

		qr, _ := result.Outcome(q.ID)
		answer.Outcome = qr.Outcome
		answer.AwardedScore = nil
		if !qr.NeedsManual {
			points := qr.Points
			answer.AwardedScore = &points
		}
		graded = append(graded, answer)
	}
	return graded
}
