package common

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	validator "github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator instance. Field names in errors use
// the json tag so messages line up with the request payload.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return field.Name
			}
			return name
		})
	})
	return validate
}

// Validate runs struct validation and converts the first failure into a
// ValidationError naming the offending field.
func Validate(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return NewAppError(CodeBadRequest, "invalid request payload", http.StatusBadRequest, err)
	}
	fe := fieldErrs[0]
	field := fieldPath(fe)
	appErr := ValidationError(field, validationMessage(field, fe))
	appErr.Err = err
	return appErr
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func validationMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
