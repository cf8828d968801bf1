package service

import (
	"errors"
	"fmt"

	"tempspec/internal/storage"

	"gorm.io/gorm"
)

// Sentinel errors returned by services; handlers map them to HTTP status codes.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrForbidden         = errors.New("forbidden")
	ErrGeneration        = errors.New("document generation failed")
	ErrConflict          = errors.New("conflict")
	ErrUnauthorized      = errors.New("invalid username or password")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// notFound maps missing rows and objects onto ErrNotFound and wraps anything else.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, storage.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}
