package httputil

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"leave-service/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Normalizer is implemented by requests that clean their fields before
// validation runs.
type Normalizer interface {
	Normalize()
}

// BindJSON decodes the request body into req, normalizes it and validates it.
// Decode and validation failures come back as *apperr.ValidationError.
func BindJSON(c *gin.Context, v *validator.Validate, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return apperr.NewValidationError(apperr.FieldError{Field: "body", Message: "Invalid request body"})
	}
	if n, ok := req.(Normalizer); ok {
		n.Normalize()
	}
	return Validate(v, req)
}

// Validate runs struct validation and translates the result.
func Validate(v *validator.Validate, req any) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate request: %w", err)
	}
	out := apperr.NewValidationError()
	for _, fe := range verrs {
		out.Add(fe.Field(), fieldMessage(fe))
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "is invalid"
	}
}
