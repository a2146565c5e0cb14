package models

import "time"

// ContentStatus is shared by every level of the course hierarchy.
type ContentStatus string

const (
	ContentDraft     ContentStatus = "draft"
	ContentPublished ContentStatus = "published"
	ContentArchived  ContentStatus = "archived"
)

// Course, Module and Lesson are owned by the catalog service; this service
// only reads them to walk the hierarchy.
type Course struct {
	ID        uint          `json:"id" gorm:"primaryKey"`
	Title     string        `json:"title" gorm:"not null;size:200"`
	Status    ContentStatus `json:"status" gorm:"default:draft;index"`
	CreatedBy string        `json:"created_by" gorm:"size:255;index"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`

	Modules []Module `json:"modules,omitempty" gorm:"foreignKey:CourseID"`
}

type Module struct {
	ID        uint          `json:"id" gorm:"primaryKey"`
	CourseID  uint          `json:"course_id" gorm:"not null;index"`
	Title     string        `json:"title" gorm:"not null;size:200"`
	Position  int           `json:"position" gorm:"not null;default:0"`
	Status    ContentStatus `json:"status" gorm:"default:draft;index"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`

	Lessons []Lesson `json:"lessons,omitempty" gorm:"foreignKey:ModuleID"`
}

type Lesson struct {
	ID        uint          `json:"id" gorm:"primaryKey"`
	ModuleID  uint          `json:"module_id" gorm:"not null;index"`
	Title     string        `json:"title" gorm:"not null;size:200"`
	Position  int           `json:"position" gorm:"not null;default:0"`
	Status    ContentStatus `json:"status" gorm:"default:draft;index"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ModulePassOverride lets an instructor pass a module for one student whose
// computed grade falls short. It never fails a module that passed on grade.
type ModulePassOverride struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ModuleID  uint      `json:"module_id" gorm:"not null;uniqueIndex:idx_module_override_student"`
	StudentID string    `json:"student_id" gorm:"not null;size:255;uniqueIndex:idx_module_override_student"`
	Passed    bool      `json:"passed" gorm:"not null"`
	Reason    *string   `json:"reason" gorm:"type:text"`
	SetBy     string    `json:"set_by" gorm:"not null;size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
