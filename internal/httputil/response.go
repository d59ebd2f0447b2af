package httputil

import (
	"errors"
	"log/slog"
	"net/http"

	"leave-service/internal/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string              `json:"message"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
}

// RespondError maps err to a status code by its apperr kind and writes the
// error body. Unclassified errors become a generic 500 and are logged in full.
func RespondError(c *gin.Context, logger *slog.Logger, err error) {
	ctx := c.Request.Context()

	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		logger.InfoContext(ctx, "validation failed", "fields", len(verr.Fields))
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Validation failed", Errors: verr.Fields})
		return
	}

	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(ctx, "internal error", "error", err, "path", c.FullPath())
		c.JSON(status, ErrorResponse{Message: "Server error"})
		return
	}

	logger.InfoContext(ctx, "request rejected", "status", status, "error", err)
	c.JSON(status, ErrorResponse{Message: apperr.Message(err)})
}

// StatusFor returns the HTTP status for an error kind.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrInvalidInput),
		errors.Is(err, apperr.ErrInvalidDateRange),
		errors.Is(err, apperr.ErrPastDateRejected),
		errors.Is(err, apperr.ErrNoFacultyAvailable):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidTransition),
		errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Abort writes the error body and stops the handler chain. Used by middleware.
func Abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(StatusFor(err), ErrorResponse{Message: apperr.Message(err)})
}
