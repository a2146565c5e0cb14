package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "evaluation-service"
	EventVersion = "1.0"
)

type EventType string

const (
	AttemptSubmitted  EventType = "attempt.submitted"
	AttemptGraded     EventType = "attempt.graded"
	GradePublished    EventType = "grade.published"
	CourseCompleted   EventType = "course.completed"
	CertificateIssued EventType = "certificate.issued"
)

// Event is the envelope published for downstream consumers
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	// Key groups events of one student so they stay ordered on a partition
	Key  string `json:"key,omitempty"`
	Data any    `json:"data"`
}

// NewEvent stamps id, source, version and time
func NewEvent(eventType EventType, key string, data any) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Key:       key,
		Data:      data,
	}
}

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// ===== EVENT PAYLOADS =====

type AttemptSubmittedData struct {
	AttemptID     uint      `json:"attempt_id"`
	EvaluationID  uint      `json:"evaluation_id"`
	StudentID     string    `json:"student_id"`
	AttemptNumber int       `json:"attempt_number"`
	SubmittedAt   time.Time `json:"submitted_at"`
	NeedsManual   bool      `json:"needs_manual_grading"`
}

type AttemptGradedData struct {
	AttemptID    uint    `json:"attempt_id"`
	EvaluationID uint    `json:"evaluation_id"`
	StudentID    string  `json:"student_id"`
	Score        float64 `json:"score"`
	MaxScore     float64 `json:"max_score"`
	GradeID      *uint   `json:"grade_id,omitempty"`
	Automatic    bool    `json:"automatic"`
}

type GradePublishedData struct {
	GradeID      uint      `json:"grade_id"`
	AttemptID    uint      `json:"attempt_id"`
	EvaluationID uint      `json:"evaluation_id"`
	StudentID    string    `json:"student_id"`
	Score        float64   `json:"score"`
	Percentage   float64   `json:"percentage"`
	Passed       bool      `json:"passed"`
	PublishedAt  time.Time `json:"published_at"`
}

type CourseCompletedData struct {
	CourseID    uint      `json:"course_id"`
	StudentID   string    `json:"student_id"`
	FinalGrade  float64   `json:"final_grade"`
	CompletedAt time.Time `json:"completed_at"`
}

type CertificateIssuedData struct {
	CertificateID uint      `json:"certificate_id"`
	CourseID      uint      `json:"course_id"`
	StudentID     string    `json:"student_id"`
	Code          string    `json:"code"`
	FinalGrade    float64   `json:"final_grade"`
	IssuedAt      time.Time `json:"issued_at"`
}
