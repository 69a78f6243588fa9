package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	// It aliases gorm.ErrRecordNotFound so callers can match either.
	ErrNotFound = gorm.ErrRecordNotFound

	// ErrDuplicate indicates a unique-constraint violation.
	ErrDuplicate = errors.New("duplicate")

	// ErrStaleClaim is returned when a page is no longer held by the batch
	// that is trying to finish it.
	ErrStaleClaim = errors.New("page claim is no longer held")
)

// isUniqueViolation recognizes unique-key errors across drivers. glebarez
// sqlite often reports them as plain text even with TranslateError enabled.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key value")
}
