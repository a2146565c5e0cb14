package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/evaluation-service/internal/validator"
)

// Error kinds. Every error returned by a service matches exactly one of
// these with errors.Is, or is a PermissionError.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidState    = errors.New("invalid state")
	ErrInvalidArgument = errors.New("invalid argument")
)

var (
	ErrEvaluationNotFound = fmt.Errorf("evaluation %w", ErrNotFound)
	ErrAttemptNotFound    = fmt.Errorf("attempt %w", ErrNotFound)
	ErrGradeNotFound      = fmt.Errorf("grade %w", ErrNotFound)
	ErrEnrollmentNotFound = fmt.Errorf("enrollment %w", ErrNotFound)
	ErrCourseNotFound     = fmt.Errorf("course %w", ErrNotFound)
	ErrModuleNotFound     = fmt.Errorf("module %w", ErrNotFound)
	ErrOverrideNotFound   = fmt.Errorf("module override %w", ErrNotFound)

	ErrAttemptInProgress = fmt.Errorf("an attempt is already in progress: %w", ErrConflict)
	ErrGradeExists       = fmt.Errorf("attempt already has a grade: %w", ErrConflict)
	ErrProgressConflict  = fmt.Errorf("enrollment changed concurrently: %w", ErrConflict)
	ErrCertificateIssued = fmt.Errorf("certificate already issued: %w", ErrConflict)

	ErrAttemptNotEditable   = fmt.Errorf("attempt is not in progress or not owned by the student: %w", ErrInvalidState)
	ErrAttemptNotInProgress = fmt.Errorf("attempt is not in progress: %w", ErrInvalidState)
	ErrAttemptNotGradable   = fmt.Errorf("attempt cannot be graded in its current state: %w", ErrInvalidState)
	ErrArchivedContent      = fmt.Errorf("content is archived: %w", ErrInvalidState)
	ErrGradeVoid            = fmt.Errorf("grade is void: %w", ErrInvalidState)
)

// ValidationErrors are returned wrapped together with ErrInvalidArgument
type ValidationErrors = validator.ValidationErrors

func invalidArgument(verrs ValidationErrors) error {
	return fmt.Errorf("%w: %w", ErrInvalidArgument, verrs)
}

// PermissionError reports a subject acting outside its role or scope
type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func IsPermissionError(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// ErrorKind names the kind an error belongs to, for logs and responses.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrInvalidState):
		return "INVALID_STATE"
	case errors.Is(err, ErrInvalidArgument):
		return "INVALID_ARGUMENT"
	case IsPermissionError(err):
		return "FORBIDDEN"
	default:
		return "INTERNAL"
	}
}
