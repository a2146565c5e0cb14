package grading

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

func newResult(q *models.Question, outcome models.AnswerOutcome) QuestionResult {
	qr := QuestionResult{QuestionID: q.ID, Outcome: outcome, MaxPoints: q.Points}
	if outcome == models.OutcomeCorrect {
		qr.Points = q.Points
	}
	return qr
}

// manualStrategy defers the question to an instructor.
type manualStrategy struct{}

func (manualStrategy) Grade(q *models.Question, _ *models.Answer) QuestionResult {
	qr := newResult(q, models.OutcomeUngradable)
	qr.NeedsManual = true
	return qr
}

type singleChoiceStrategy struct{}

func (singleChoiceStrategy) Grade(q *models.Question, answer *models.Answer) QuestionResult {
	correct := correctOptionIDs(q)
	if len(correct) == 0 {
		return newResult(q, models.OutcomeUngradable)
	}
	if answer == nil || len(answer.SelectedOptionIDs) == 0 {
		return newResult(q, models.OutcomeUnanswered)
	}
	if slices.Contains(correct, answer.SelectedOptionIDs[0]) {
		return newResult(q, models.OutcomeCorrect)
	}
	return newResult(q, models.OutcomeIncorrect)
}

// multipleChoiceStrategy is all-or-nothing on exact set equality.
type multipleChoiceStrategy struct{}

func (multipleChoiceStrategy) Grade(q *models.Question, answer *models.Answer) QuestionResult {
	correct := sortedSet(correctOptionIDs(q))
	if len(correct) == 0 {
		return newResult(q, models.OutcomeUngradable)
	}
	if answer == nil || len(answer.SelectedOptionIDs) == 0 {
		return newResult(q, models.OutcomeUnanswered)
	}
	if slices.Equal(correct, sortedSet(answer.SelectedOptionIDs)) {
		return newResult(q, models.OutcomeCorrect)
	}
	return newResult(q, models.OutcomeIncorrect)
}

type numericStrategy struct {
	tolerance float64
}

func (s numericStrategy) Grade(q *models.Question, answer *models.Answer) QuestionResult {
	if answer == nil || answer.Text == nil || strings.TrimSpace(*answer.Text) == "" {
		return newResult(q, models.OutcomeUnanswered)
	}
	if q.CorrectValue == nil {
		return newResult(q, models.OutcomeUngradable)
	}

	value, ok := parseNumber(*answer.Text)
	if !ok {
		return newResult(q, models.OutcomeIncorrect)
	}
	if math.Abs(value-*q.CorrectValue) <= s.tolerance {
		return newResult(q, models.OutcomeCorrect)
	}
	return newResult(q, models.OutcomeIncorrect)
}

// parseNumber accepts surrounding whitespace and rejects NaN and infinities.
func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func correctOptionIDs(q *models.Question) []string {
	var ids []string
	for _, o := range q.Options {
		if o.Correct {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

func sortedSet(ids []string) []string {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
