package httputil_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"leave-service/internal/apperr"
	"leave-service/internal/httputil"
	"leave-service/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{"unauthenticated", fmt.Errorf("Authentication required: %w", apperr.ErrUnauthenticated), http.StatusUnauthorized, "Authentication required"},
		{"forbidden", fmt.Errorf("Only students can apply for leave: %w", apperr.ErrForbidden), http.StatusForbidden, "Only students can apply for leave"},
		{"date range", fmt.Errorf("End date must be after start date: %w", apperr.ErrInvalidDateRange), http.StatusBadRequest, "End date must be after start date"},
		{"past date", fmt.Errorf("Cannot apply for past dates: %w", apperr.ErrPastDateRejected), http.StatusBadRequest, "Cannot apply for past dates"},
		{"no faculty", fmt.Errorf("No faculty found in your department: %w", apperr.ErrNoFacultyAvailable), http.StatusBadRequest, "No faculty found in your department"},
		{"not found", fmt.Errorf("Leave not found: %w", apperr.ErrNotFound), http.StatusNotFound, "Leave not found"},
		{"transition", fmt.Errorf("Leave has already been decided: %w", apperr.ErrInvalidTransition), http.StatusConflict, "Leave has already been decided"},
		{"conflict wrapped", fmt.Errorf("decide leave: %w", fmt.Errorf("Leave was modified concurrently: %w", apperr.ErrConflict)), http.StatusConflict, "decide leave: Leave was modified concurrently"},
		{"server fault", errors.New("pq: connection refused"), http.StatusInternalServerError, "Server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			httputil.RespondError(c, logger.Discard(), tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body httputil.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantMessage, body.Message)
			assert.Empty(t, body.Errors)
		})
	}
}

func TestRespondError_ValidationFields(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	verr := apperr.NewValidationError()
	verr.Add("reason", "must be at least 10 characters")

	httputil.RespondError(c, logger.Discard(), fmt.Errorf("create leave: %w", verr))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Validation failed", body.Message)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "reason", body.Errors[0].Field)
}

type createUserRequest struct {
	Name  string `json:"name" validate:"required,min=2"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=student faculty admin"`
}

func TestBindJSON(t *testing.T) {
	v := httputil.NewValidator()

	t.Run("Valid", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Ada","email":"ada@uni.edu","role":"faculty"}`))
		c.Request.Header.Set("Content-Type", "application/json")

		var req createUserRequest
		require.NoError(t, httputil.BindJSON(c, v, &req))
		assert.Equal(t, "Ada", req.Name)
	})

	t.Run("FieldErrorsUseJSONNames", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"A","email":"nope","role":"janitor"}`))
		c.Request.Header.Set("Content-Type", "application/json")

		var req createUserRequest
		err := httputil.BindJSON(c, v, &req)
		require.ErrorIs(t, err, apperr.ErrInvalidInput)

		var verr *apperr.ValidationError
		require.True(t, errors.As(err, &verr))
		fields := map[string]string{}
		for _, f := range verr.Fields {
			fields[f.Field] = f.Message
		}
		assert.Equal(t, "must be at least 2 characters", fields["name"])
		assert.Equal(t, "must be a valid email", fields["email"])
		assert.Equal(t, "must be one of student, faculty, admin", fields["role"])
	})

	t.Run("MalformedBody", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
		c.Request.Header.Set("Content-Type", "application/json")

		var req createUserRequest
		assert.ErrorIs(t, httputil.BindJSON(c, v, &req), apperr.ErrInvalidInput)
	})
}
