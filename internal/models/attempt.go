package models

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
	AttemptGraded     AttemptStatus = "graded"
	AttemptExpired    AttemptStatus = "expired"
	AttemptVoid       AttemptStatus = "void"
)

type Attempt struct {
	ID            uint          `json:"id" gorm:"primaryKey"`
	EvaluationID  uint          `json:"evaluation_id" gorm:"not null;index;uniqueIndex:idx_attempt_number"`
	StudentID     string        `json:"student_id" gorm:"not null;size:255;index;uniqueIndex:idx_attempt_number"`
	AttemptNumber int           `json:"attempt_number" gorm:"not null;uniqueIndex:idx_attempt_number"`
	Status        AttemptStatus `json:"status" gorm:"not null;default:in_progress;index"`

	// Timing
	TimeLimitSeconds int        `json:"time_limit_seconds" gorm:"not null;default:0"`
	UsedTimeSeconds  int        `json:"used_time_seconds" gorm:"not null;default:0"`
	StartedAt        time.Time  `json:"started_at"`
	SubmittedAt      *time.Time `json:"submitted_at" gorm:"index"`
	GradedAt         *time.Time `json:"graded_at"`

	// Scoring
	Score    *float64 `json:"score"`
	MaxScore *float64 `json:"max_score"`
	GradeID  *uint    `json:"grade_id" gorm:"index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Answers []Answer `json:"answers,omitempty" gorm:"foreignKey:AttemptID"`
}

// IsOwnedBy reports whether the attempt belongs to the student.
func (a *Attempt) IsOwnedBy(studentID string) bool {
	return a.StudentID == studentID
}

// TimeLimitExceeded reports whether usedSeconds goes over a nonzero limit.
func (a *Attempt) TimeLimitExceeded(usedSeconds int) bool {
	return a.TimeLimitSeconds > 0 && usedSeconds > a.TimeLimitSeconds
}

// Answer returns the answer recorded for a question, if any.
func (a *Attempt) Answer(questionID uint) (*Answer, bool) {
	for i := range a.Answers {
		if a.Answers[i].QuestionID == questionID {
			return &a.Answers[i], true
		}
	}
	return nil, false
}

type AnswerOutcome string

const (
	OutcomeCorrect    AnswerOutcome = "correct"
	OutcomeIncorrect  AnswerOutcome = "incorrect"
	OutcomeUnanswered AnswerOutcome = "unanswered"
	OutcomeUngradable AnswerOutcome = "ungradable"
)

type Answer struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	AttemptID  uint `json:"attempt_id" gorm:"not null;uniqueIndex:idx_answer_attempt_question"`
	QuestionID uint `json:"question_id" gorm:"not null;uniqueIndex:idx_answer_attempt_question"`

	// Content depends on the question type
	SelectedOptionIDs datatypes.JSONSlice[string] `json:"selected_option_ids,omitempty" gorm:"type:jsonb"`
	Text              *string                     `json:"text,omitempty" gorm:"type:text"`

	// Grading
	AwardedScore *float64      `json:"awarded_score"`
	Outcome      AnswerOutcome `json:"outcome,omitempty" gorm:"size:20"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
