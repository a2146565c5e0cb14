package models

import "time"

type EnrollmentStatus string

const (
	EnrollmentPending   EnrollmentStatus = "pending"
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentCancelled EnrollmentStatus = "cancelled"
)

type Enrollment struct {
	ID          uint             `json:"id" gorm:"primaryKey"`
	CourseID    uint             `json:"course_id" gorm:"not null;uniqueIndex:idx_enrollment_course_student"`
	StudentID   string           `json:"student_id" gorm:"not null;size:255;uniqueIndex:idx_enrollment_course_student"`
	Status      EnrollmentStatus `json:"status" gorm:"not null;default:pending;index"`
	FinalGrade  *float64         `json:"final_grade"`
	PassedFinal bool             `json:"passed_final" gorm:"default:false"`
	CompletedAt *time.Time       `json:"completed_at"`

	// Optimistic concurrency token, bumped on every write.
	Version int64 `json:"version" gorm:"not null;default:1"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Certificate struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	CourseID   uint      `json:"course_id" gorm:"not null;uniqueIndex:idx_certificate_course_student"`
	StudentID  string    `json:"student_id" gorm:"not null;size:255;uniqueIndex:idx_certificate_course_student"`
	Code       string    `json:"code" gorm:"not null;uniqueIndex;size:64"`
	FinalGrade float64   `json:"final_grade"`
	IssuedAt   time.Time `json:"issued_at"`
	CreatedAt  time.Time `json:"created_at"`
}
