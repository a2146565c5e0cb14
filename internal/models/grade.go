package models

import (
	"time"

	"gorm.io/datatypes"
)

type GradeStatus string

const (
	GradePending   GradeStatus = "pending"
	GradeInReview  GradeStatus = "in_review"
	GradePublished GradeStatus = "published"
	GradeVoid      GradeStatus = "void"
)

type RubricItem struct {
	Criterion string  `json:"criterion"`
	Points    float64 `json:"points"`
	MaxPoints float64 `json:"max_points"`
	Comment   *string `json:"comment,omitempty"`
}

// Grade is the durable outcome of grading one attempt.
type Grade struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	AttemptID    uint   `json:"attempt_id" gorm:"not null;uniqueIndex"`
	EvaluationID uint   `json:"evaluation_id" gorm:"not null;index"`
	StudentID    string `json:"student_id" gorm:"not null;size:255;index"`
	GraderID     string `json:"grader_id" gorm:"not null;size:255"`

	// Snapshot of the evaluation at grading time
	MaxScore      float64 `json:"max_score" gorm:"not null"`
	PassThreshold float64 `json:"pass_threshold" gorm:"not null"`

	Score      float64                         `json:"score" gorm:"not null"`
	Percentage float64                         `json:"percentage" gorm:"not null"`
	Passed     bool                            `json:"passed"`
	Feedback   *string                         `json:"feedback" gorm:"type:text"`
	Rubric     datatypes.JSONSlice[RubricItem] `json:"rubric,omitempty" gorm:"type:jsonb"`

	Status      GradeStatus `json:"status" gorm:"not null;default:pending;index"`
	PublishedAt *time.Time  `json:"published_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (g *Grade) IsPublished() bool {
	return g.Status == GradePublished
}
