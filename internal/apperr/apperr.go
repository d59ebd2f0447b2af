// Package apperr defines the error kinds shared by every service package.
//
// Packages declare their own sentinels wrapping one of these kinds, e.g.
//
//	var ErrLeaveNotFound = fmt.Errorf("Leave not found: %w", apperr.ErrNotFound)
//
// and the HTTP layer classifies with errors.Is against the kinds only.
package apperr

import (
	"errors"
	"strings"
)

var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidDateRange   = errors.New("invalid date range")
	ErrPastDateRejected   = errors.New("past date rejected")
	ErrNotFound           = errors.New("not found")
	ErrNoFacultyAvailable = errors.New("no faculty available")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrConflict           = errors.New("conflict")
)

// FieldError is a single offending request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every offending field of one request.
// It matches ErrInvalidInput with errors.Is.
type ValidationError struct {
	Fields []FieldError
}

func NewValidationError(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrInvalidInput.Error()
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return ErrInvalidInput.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Message strips the wrapped kind from a sentinel built with "%w", leaving the
// human-readable prefix. "Leave not found: not found" becomes "Leave not found".
func Message(err error) string {
	msg := err.Error()
	for _, kind := range kinds {
		if suffix := ": " + kind.Error(); strings.HasSuffix(msg, suffix) {
			return strings.TrimSuffix(msg, suffix)
		}
	}
	return msg
}

var kinds = []error{
	ErrUnauthenticated,
	ErrForbidden,
	ErrInvalidInput,
	ErrInvalidDateRange,
	ErrPastDateRejected,
	ErrNotFound,
	ErrNoFacultyAvailable,
	ErrInvalidTransition,
	ErrConflict,
}
