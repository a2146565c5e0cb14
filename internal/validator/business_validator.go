package validator

import (
	"fmt"
	"math"
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

// BusinessValidator checks rules that need domain data next to the request
type BusinessValidator struct {
	validate *validator.Validate
}

func newBusinessValidator(validate *validator.Validate) *BusinessValidator {
	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()
	return bv
}

// registerBusinessRules registers custom tags used by the request DTOs
func (bv *BusinessValidator) registerBusinessRules() {
	// Scores are finite and non-negative
	_ = bv.validate.RegisterValidation("score_value", func(fl validator.FieldLevel) bool {
		score := fl.Field().Float()
		return !math.IsNaN(score) && !math.IsInf(score, 0) && score >= 0
	})

	_ = bv.validate.RegisterValidation("attempt_status", func(fl validator.FieldLevel) bool {
		switch models.AttemptStatus(fl.Field().String()) {
		case models.AttemptInProgress, models.AttemptSubmitted, models.AttemptGraded,
			models.AttemptExpired, models.AttemptVoid:
			return true
		}
		return false
	})

	// One answer per question in a single request
	_ = bv.validate.RegisterValidation("unique_questions", func(fl validator.FieldLevel) bool {
		answers, ok := fl.Field().Interface().([]AnswerInput)
		if !ok {
			return false
		}
		seen := make(map[uint]struct{}, len(answers))
		for _, a := range answers {
			if _, dup := seen[a.QuestionID]; dup {
				return false
			}
			seen[a.QuestionID] = struct{}{}
		}
		return true
	})

	bv.validate.RegisterStructValidation(func(sl validator.StructLevel) {
		item := sl.Current().Interface().(RubricItemInput)
		if item.Points > item.MaxPoints {
			sl.ReportError(item.Points, "points", "Points", "rubric_points", "")
		}
	}, RubricItemInput{})
}

// ValidateAnswers checks that every answer targets a question of the
// evaluation and only references that question's options.
func (bv *BusinessValidator) ValidateAnswers(answers []AnswerInput, evaluation *models.Evaluation) ValidationErrors {
	var errors ValidationErrors

	for i, answer := range answers {
		field := fmt.Sprintf("answers[%d]", i)

		question, ok := evaluation.Question(answer.QuestionID)
		if !ok {
			errors = append(errors, ValidationError{
				Field:   field + ".question_id",
				Message: "does not belong to the evaluation",
				Value:   answer.QuestionID,
				Rule:    "unknown_question",
			})
			continue
		}

		for _, optionID := range answer.SelectedOptionIDs {
			if !question.HasOption(optionID) {
				errors = append(errors, ValidationError{
					Field:   field + ".selected_option_ids",
					Message: "references an unknown option",
					Value:   optionID,
					Rule:    "unknown_option",
				})
			}
		}

		switch question.Type {
		case models.SingleChoice:
			if len(answer.SelectedOptionIDs) > 1 {
				errors = append(errors, ValidationError{
					Field:   field + ".selected_option_ids",
					Message: "accepts a single option",
					Value:   len(answer.SelectedOptionIDs),
					Rule:    "single_choice",
				})
			}
		case models.Numeric, models.Open:
			if len(answer.SelectedOptionIDs) > 0 {
				errors = append(errors, ValidationError{
					Field:   field + ".selected_option_ids",
					Message: "is not allowed for this question type",
					Rule:    "question_type",
				})
			}
		case models.MultipleChoice:
			if hasDuplicates(answer.SelectedOptionIDs) {
				errors = append(errors, ValidationError{
					Field:   field + ".selected_option_ids",
					Message: "must not repeat an option",
					Rule:    "unique",
				})
			}
		}
	}

	return errors
}

// ValidateUsedTime rejects used time above a nonzero limit
func (bv *BusinessValidator) ValidateUsedTime(usedSeconds, limitSeconds int) ValidationErrors {
	if limitSeconds > 0 && usedSeconds > limitSeconds {
		return ValidationErrors{{
			Field:   "used_time_seconds",
			Message: fmt.Sprintf("exceeds the time limit of %d seconds", limitSeconds),
			Value:   usedSeconds,
			Rule:    "time_limit",
		}}
	}
	return nil
}

// ValidateScore checks 0 <= score <= maxScore
func (bv *BusinessValidator) ValidateScore(score, maxScore float64) ValidationErrors {
	if score < 0 || score > maxScore {
		return ValidationErrors{{
			Field:   "score",
			Message: fmt.Sprintf("must be between 0 and %g", maxScore),
			Value:   score,
			Rule:    "score_range",
		}}
	}
	return nil
}

func hasDuplicates(ids []string) bool {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return len(slices.Compact(sorted)) != len(ids)
}
