package leave

import (
	"fmt"

	"leave-service/internal/apperr"
)

var (
	ErrLeaveNotFound      = fmt.Errorf("Leave not found: %w", apperr.ErrNotFound)
	ErrStudentsOnly       = fmt.Errorf("Only students can apply for leave: %w", apperr.ErrForbidden)
	ErrFacultyOnly        = fmt.Errorf("Faculty access required: %w", apperr.ErrForbidden)
	ErrAdminOnly          = fmt.Errorf("Admin access required: %w", apperr.ErrForbidden)
	ErrNotAuthorized      = fmt.Errorf("Not authorized to update this leave: %w", apperr.ErrForbidden)
	ErrNotVisible         = fmt.Errorf("Not authorized to view this leave: %w", apperr.ErrForbidden)
	ErrInvalidDateRange   = fmt.Errorf("End date must be after start date: %w", apperr.ErrInvalidDateRange)
	ErrPastDate           = fmt.Errorf("Cannot apply for past dates: %w", apperr.ErrPastDateRejected)
	ErrNoFacultyAvailable = fmt.Errorf("No faculty found in your department: %w", apperr.ErrNoFacultyAvailable)
	ErrBlankDepartment    = fmt.Errorf("Department is required: %w", apperr.ErrInvalidInput)
	ErrAlreadyDecided     = fmt.Errorf("Leave has already been decided: %w", apperr.ErrInvalidTransition)
	ErrConcurrentUpdate   = fmt.Errorf("Leave was modified by another request, please retry: %w", apperr.ErrConflict)
)
