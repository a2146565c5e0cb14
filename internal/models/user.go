package models

import (
	"strings"
	"time"
)

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleProctor UserRole = "proctor"
	RoleAdmin   UserRole = "admin"
)

// ParseUserRole maps identity provider role names onto platform roles,
// defaulting to student.
func ParseUserRole(name string) UserRole {
	switch strings.ToLower(name) {
	case "admin", "administrator":
		return RoleAdmin
	case "teacher", "instructor", "educator":
		return RoleTeacher
	case "proctor", "supervisor":
		return RoleProctor
	default:
		return RoleStudent
	}
}

// IsStaff reports whether the role may grade and supervise.
func (r UserRole) IsStaff() bool {
	return r == RoleTeacher || r == RoleAdmin
}

// User is resolved from Casdoor and never stored by this service.
type User struct {
	ID            string    `json:"id"`
	FullName      string    `json:"full_name"`
	Email         string    `json:"email"`
	Role          UserRole  `json:"role"`
	AvatarURL     *string   `json:"avatar_url"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
