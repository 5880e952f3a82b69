package common

import (
	"errors"
	"net/http"
)

// Error codes shared by every module.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeEmailAlreadyUsed   = "EMAIL_ALREADY_USED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInternal           = "INTERNAL"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// ValidationError reports a missing or malformed field.
func ValidationError(field, message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"field": field},
	}
}

// NotFound reports an unknown identifier.
func NotFound(message string, err error) *AppError {
	return NewAppError(CodeNotFound, message, http.StatusNotFound, err)
}

// Unauthorized reports missing or rejected credentials.
func Unauthorized(code, message string) *AppError {
	if code == "" {
		code = CodeUnauthorized
	}
	return NewAppError(code, message, http.StatusUnauthorized, nil)
}
