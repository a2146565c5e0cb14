package validator

import "github.com/SAP-F-2025/evaluation-service/internal/models"

// ===== ATTEMPT REQUESTS =====

type AnswerInput struct {
	QuestionID        uint     `json:"question_id" validate:"required"`
	SelectedOptionIDs []string `json:"selected_option_ids" validate:"omitempty,max=50,dive,required,max=64"`
	Text              *string  `json:"text" validate:"omitempty,max=20000"`
}

// StartAttemptRequest opens a new attempt. TimeLimitSeconds and MaxScore
// default to the evaluation's configuration.
type StartAttemptRequest struct {
	EvaluationID     uint     `json:"evaluation_id" validate:"required"`
	TimeLimitSeconds *int     `json:"time_limit_seconds" validate:"omitempty,min=0,max=604800"`
	MaxScore         *float64 `json:"max_score" validate:"omitempty,gt=0"`
}

type UpdateAnswersRequest struct {
	Answers         []AnswerInput `json:"answers" validate:"omitempty,max=500,unique_questions,dive"`
	UsedTimeSeconds *int          `json:"used_time_seconds" validate:"omitempty,min=0"`
}

type SubmitAttemptRequest struct {
	Answers         []AnswerInput `json:"answers" validate:"omitempty,max=500,unique_questions,dive"`
	UsedTimeSeconds *int          `json:"used_time_seconds" validate:"omitempty,min=0"`
}

// AttemptListQuery is bound from the instructor listing query string
type AttemptListQuery struct {
	Status    string `form:"status" json:"status" validate:"omitempty,attempt_status"`
	StudentID string `form:"student_id" json:"student_id" validate:"omitempty,max=128"`
	Limit     int    `form:"limit" json:"limit" validate:"omitempty,min=1,max=100"`
	Offset    int    `form:"offset" json:"offset" validate:"omitempty,min=0"`
	SortBy    string `form:"sort_by" json:"sort_by" validate:"omitempty,oneof=submitted_at attempt_number score started_at"`
	SortOrder string `form:"sort_order" json:"sort_order" validate:"omitempty,oneof=asc desc"`
}

// ===== GRADING REQUESTS =====

type RubricItemInput struct {
	Criterion string  `json:"criterion" validate:"required,max=200"`
	Points    float64 `json:"points" validate:"score_value"`
	MaxPoints float64 `json:"max_points" validate:"gt=0"`
	Comment   *string `json:"comment" validate:"omitempty,max=1000"`
}

func (r RubricItemInput) ToModel() models.RubricItem {
	return models.RubricItem{
		Criterion: r.Criterion,
		Points:    r.Points,
		MaxPoints: r.MaxPoints,
		Comment:   r.Comment,
	}
}

type GradeRequest struct {
	Score    *float64          `json:"score" validate:"required,score_value"`
	Feedback *string           `json:"feedback" validate:"omitempty,max=5000"`
	Rubric   []RubricItemInput `json:"rubric" validate:"omitempty,max=50,dive"`
}

// UpdateGradeRequest changes only the fields that are set. A non-nil
// Rubric replaces the stored one.
type UpdateGradeRequest struct {
	Score    *float64          `json:"score" validate:"omitempty,score_value"`
	Feedback *string           `json:"feedback" validate:"omitempty,max=5000"`
	Rubric   []RubricItemInput `json:"rubric" validate:"omitempty,max=50,dive"`
}

// ===== PROGRESS REQUESTS =====

type ModuleOverrideRequest struct {
	Passed *bool   `json:"passed" validate:"required"`
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}
