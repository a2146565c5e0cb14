// Package grading scores machine-gradable questions of a submitted attempt.
// It is pure computation: no storage, no clock.
package grading

import (
	"github.com/SAP-F-2025/evaluation-service/internal/models"
)

// DefaultNumericTolerance is the absolute tolerance for numeric answers.
const DefaultNumericTolerance = 1e-6

// QuestionResult is the outcome of grading one question.
type QuestionResult struct {
	QuestionID  uint
	Outcome     models.AnswerOutcome
	Points      float64 // awarded
	MaxPoints   float64
	NeedsManual bool
}

// Result aggregates an attempt.
type Result struct {
	TotalScore         float64
	MaxScore           float64
	HasManualQuestions bool
	Questions          []QuestionResult
}

// Outcome returns the result recorded for a question.
func (r Result) Outcome(questionID uint) (QuestionResult, bool) {
	for _, q := range r.Questions {
		if q.QuestionID == questionID {
			return q, true
		}
	}
	return QuestionResult{}, false
}

// Strategy grades a single question type. answer is nil when the student
// left the question out entirely.
type Strategy interface {
	Grade(q *models.Question, answer *models.Answer) QuestionResult
}

// Engine routes each question to the strategy registered for its type.
type Engine struct {
	strategies map[models.QuestionType]Strategy
}

type Option func(*config)

type config struct {
	NumericTolerance float64
}

func WithNumericTolerance(tol float64) Option {
	return func(c *config) { c.NumericTolerance = tol }
}

// NewEngine installs the built-in strategies.
func NewEngine(opts ...Option) *Engine {
	cfg := &config{NumericTolerance: DefaultNumericTolerance}
	for _, o := range opts {
		o(cfg)
	}
	return &Engine{
		strategies: map[models.QuestionType]Strategy{
			models.SingleChoice:   singleChoiceStrategy{},
			models.MultipleChoice: multipleChoiceStrategy{},
			models.Numeric:        numericStrategy{tolerance: cfg.NumericTolerance},
			models.Open:           manualStrategy{},
		},
	}
}

// Grade scores every question against the matching answer. Questions that
// cannot be auto-graded contribute 0 and set HasManualQuestions.
func (e *Engine) Grade(questions []models.Question, answers []models.Answer) Result {
	byQuestion := make(map[uint]*models.Answer, len(answers))
	for i := range answers {
		byQuestion[answers[i].QuestionID] = &answers[i]
	}

	res := Result{Questions: make([]QuestionResult, 0, len(questions))}
	for i := range questions {
		q := &questions[i]
		res.MaxScore += q.Points

		var qr QuestionResult
		strategy, ok := e.strategies[q.Type]
		switch {
		case !q.IsAutoGradable() || !ok:
			qr = manualStrategy{}.Grade(q, byQuestion[q.ID])
		default:
			qr = strategy.Grade(q, byQuestion[q.ID])
		}

		if qr.NeedsManual {
			res.HasManualQuestions = true
		}
		res.TotalScore += qr.Points
		res.Questions = append(res.Questions, qr)
	}
	return res
}
