package common

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
)

// ErrorBody is the error payload returned by the API. Error carries the human
// readable message; Code is stable and meant for clients.
type ErrorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// JSON writes the provided value to the response writer as JSON.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONError renders an error response using the canonical error shape.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, ErrorBody{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// WriteError renders err. AppErrors keep their status and message, anything
// else becomes a generic 500 and is logged with the request logger.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		code := appErr.Code
		if code == "" {
			code = CodeInternal
		}
		message := appErr.Message
		if message == "" {
			message = "internal error"
		}
		if status >= http.StatusInternalServerError && r != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Str("code", code).Msg("request failed")
		}
		JSONError(w, status, code, message, appErr.Details)
		return
	}
	if r != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	}
	JSONError(w, http.StatusInternalServerError, CodeInternal, "internal error", nil)
}

// DecodeJSON decodes the request body into dst, rejecting malformed payloads.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return NewAppError(CodeBadRequest, "request body is required", http.StatusBadRequest, nil)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		appErr := NewAppError(CodeBadRequest, "invalid request payload", http.StatusBadRequest, err)
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			appErr.Details = map[string]any{"offset": syntaxErr.Offset}
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			appErr.Details = map[string]any{"field": typeErr.Field}
		}
		return appErr
	}
	return nil
}
