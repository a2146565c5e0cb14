package models

import (
	"time"

	"gorm.io/datatypes"
)

type EvaluationType string

const (
	EvaluationQuiz       EvaluationType = "quiz"
	EvaluationAssignment EvaluationType = "assignment"
	EvaluationExam       EvaluationType = "exam"
)

// DefaultPassThreshold is the percentage a lesson or module needs to pass.
const DefaultPassThreshold = 70.0

type Evaluation struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	LessonID         uint           `json:"lesson_id" gorm:"not null;index"`
	Title            string         `json:"title" gorm:"not null;size:200"`
	Type             EvaluationType `json:"type" gorm:"not null;default:quiz"`
	MaxScore         float64        `json:"max_score" gorm:"not null;default:0"`
	PassThreshold    float64        `json:"pass_threshold" gorm:"not null;default:70"`
	TimeLimitSeconds int            `json:"time_limit_seconds" gorm:"not null;default:0"`
	Status           ContentStatus  `json:"status" gorm:"default:draft;index"`

	// Derived from Questions, see RefreshDerivedFlags.
	AutoGradable         bool `json:"auto_gradable" gorm:"default:false"`
	RequiresManualReview bool `json:"requires_manual_review" gorm:"default:false"`

	CreatedBy string    `json:"created_by" gorm:"size:255;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:EvaluationID"`
}

// RefreshDerivedFlags recomputes AutoGradable and RequiresManualReview from the
// question bank. An evaluation without questions is neither.
func (e *Evaluation) RefreshDerivedFlags() {
	if len(e.Questions) == 0 {
		e.AutoGradable = false
		e.RequiresManualReview = false
		return
	}
	manual := false
	for i := range e.Questions {
		if !e.Questions[i].IsAutoGradable() {
			manual = true
			break
		}
	}
	e.AutoGradable = !manual
	e.RequiresManualReview = manual
}

// Question finds a question of the bank by id.
func (e *Evaluation) Question(id uint) (*Question, bool) {
	for i := range e.Questions {
		if e.Questions[i].ID == id {
			return &e.Questions[i], true
		}
	}
	return nil, false
}

type QuestionType string

const (
	SingleChoice   QuestionType = "single_choice"
	MultipleChoice QuestionType = "multiple_choice"
	Numeric        QuestionType = "numeric"
	Open           QuestionType = "open"
)

type QuestionOption struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

type Question struct {
	ID           uint         `json:"id" gorm:"primaryKey"`
	EvaluationID uint         `json:"evaluation_id" gorm:"not null;index"`
	Position     int          `json:"position" gorm:"not null;default:0"`
	Type         QuestionType `json:"type" gorm:"not null"`
	Prompt       string       `json:"prompt" gorm:"type:text;not null"`
	Points       float64      `json:"points" gorm:"not null;default:1"`
	AutoGradable bool         `json:"auto_gradable" gorm:"not null"`

	// Type specific correctness data
	Options      datatypes.JSONSlice[QuestionOption] `json:"options,omitempty" gorm:"type:jsonb"`
	CorrectValue *float64                            `json:"correct_value,omitempty"`
	Guide        *string                             `json:"guide,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAutoGradable reports whether the engine may score the question. Open
// questions always go to an instructor.
func (q *Question) IsAutoGradable() bool {
	return q.AutoGradable && q.Type != Open
}

// HasOption reports whether the option id belongs to the question.
func (q *Question) HasOption(id string) bool {
	for _, o := range q.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}
