package models

// ProgressReport is the computed breakdown for one student across a course.
// It is never stored; the enrollment caches only FinalGrade and PassedFinal.
type ProgressReport struct {
	CourseID     uint             `json:"course_id"`
	StudentID    string           `json:"student_id"`
	EnrollmentID uint             `json:"enrollment_id"`
	FinalGrade   *float64         `json:"final_grade"`
	Passed       bool             `json:"passed"`
	Completed    bool             `json:"completed"`
	Modules      []ModuleProgress `json:"modules"`
}

type ModuleProgress struct {
	ModuleID   uint             `json:"module_id"`
	Title      string           `json:"title"`
	Grade      *float64         `json:"grade"`
	Passed     bool             `json:"passed"`
	Overridden bool             `json:"overridden"`
	Lessons    []LessonProgress `json:"lessons"`
}

type LessonProgress struct {
	LessonID    uint                 `json:"lesson_id"`
	Title       string               `json:"title"`
	Grade       *float64             `json:"grade"`
	Passed      bool                 `json:"passed"`
	Evaluations []EvaluationProgress `json:"evaluations"`
}

type EvaluationProgress struct {
	EvaluationID  uint    `json:"evaluation_id"`
	BestAttemptID uint    `json:"best_attempt_id"`
	Score         float64 `json:"score"`
	MaxScore      float64 `json:"max_score"`
	Percentage    float64 `json:"percentage"`
}

// EvaluationStats is the instructor read model for one evaluation.
type EvaluationStats struct {
	EvaluationID     uint                    `json:"evaluation_id"`
	TotalAttempts    int64                   `json:"total_attempts"`
	ByStatus         map[AttemptStatus]int64 `json:"by_status"`
	DistinctStudents int64                   `json:"distinct_students"`
	AverageScore     float64                 `json:"average_score"`
	PendingGrades    int64                   `json:"pending_grades"`
}
