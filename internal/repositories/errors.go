package repositories

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned by stores that do not surface gorm errors.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate wraps unique constraint violations.
	ErrDuplicate = errors.New("duplicate record")
	// ErrVersionConflict signals a stale optimistic lock token.
	ErrVersionConflict = errors.New("version conflict")
)

// IsNotFoundError checks both gorm's and the package's not-found errors.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrNotFound)
}

// IsDuplicateError reports a unique constraint violation. It relies on the
// gorm connection being opened with TranslateError.
func IsDuplicateError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, ErrDuplicate)
}
