package http

import (
	"fmt"
	"net/http"
	"strings"
)

// AppError is an application error carrying the HTTP status to surface.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Field:   field,
		Status:  status,
	}
}

// WithParam attaches a detail param to the error.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[key] = value
	return e
}

// WithError wraps an underlying error.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// NotFoundError creates a 404 error.
func NotFoundError(message string) *AppError {
	return NewAppError("ERR_NOT_FOUND", "", message, http.StatusNotFound)
}

// NotFoundErrorf creates a 404 error with formatting.
func NotFoundErrorf(format string, a ...interface{}) *AppError {
	return NotFoundError(fmt.Sprintf(format, a...))
}

// BadRequestError creates a 400 error.
func BadRequestError(message string) *AppError {
	return NewAppError("ERR_BAD_REQUEST", "", message, http.StatusBadRequest)
}

// InternalError creates a 500 error.
func InternalError(message string) *AppError {
	return NewAppError("ERR_INTERNAL", "", message, http.StatusInternalServerError)
}

// UpstreamError maps a non-2xx upstream response to an application error.
// A 404 stays a 404 (unknown contract, delisted series); everything else is
// reported as a bad gateway so upstream faults are distinguishable from ours.
func UpstreamError(status int, body string) *AppError {
	body = strings.TrimSpace(body)
	if status == http.StatusNotFound {
		err := NotFoundError("upstream resource not found")
		if body != "" {
			err.WithParam("upstream_body", body)
		}
		return err
	}

	err := NewAppError("ERR_UPSTREAM", "", fmt.Sprintf("upstream returned status %d", status), http.StatusBadGateway)
	err.WithParam("upstream_status", status)
	if body != "" {
		err.WithParam("upstream_body", body)
	}
	return err
}
