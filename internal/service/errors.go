package service

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Error categories. Every error returned by the services matches exactly one
// of them through errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrStore           = errors.New("store failure")
	ErrUnauthenticated = errors.New("authentication required")
)

var (
	ErrTitleRequired        = fmt.Errorf("%w: title is required", ErrValidation)
	ErrInvalidSlug          = fmt.Errorf("%w: title does not produce a valid slug", ErrValidation)
	ErrInvalidFormat        = fmt.Errorf("%w: unsupported content format", ErrValidation)
	ErrFeaturedRequiresBlog = fmt.Errorf("%w: only blog posts can be featured", ErrValidation)
	ErrSettingKeyRequired   = fmt.Errorf("%w: setting key is required", ErrValidation)
	ErrUploadInvalid        = fmt.Errorf("%w: invalid file type or empty upload", ErrValidation)
	ErrUploadTooLarge       = fmt.Errorf("%w: upload exceeds size limit", ErrValidation)
	ErrInvalidCredentials   = fmt.Errorf("%w: invalid username or password", ErrUnauthenticated)

	ErrPageNotFound    = fmt.Errorf("page %w", ErrNotFound)
	ErrSettingNotFound = fmt.Errorf("setting %w", ErrNotFound)

	// ErrSlugConflict means another writer committed the same slug first.
	// Callers may retry the whole operation.
	ErrSlugConflict = fmt.Errorf("%w: slug already taken, retry the request", ErrConflict)
)

// StoreError wraps an underlying persistence failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrStore) match any StoreError.
func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

func storeError(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// isUniqueViolation covers drivers without error translation as well as
// gorm's translated ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
