package api

import (
	"net/http"
)

// APIError is the structured error body returned on every failure.
type APIError struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
	Status  int    `json:"-"`
}

type errorResponse struct {
	Error *APIError `json:"error"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Is implements errors.Is for comparing error types.
func (e *APIError) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// With returns a copy of the error with a custom message.
func (e *APIError) With(message string) *APIError {
	if e == nil {
		return nil
	}
	dup := *e
	dup.Message = message
	return &dup
}

// WithParam returns a copy of the error with a custom message and parameter.
func (e *APIError) WithParam(message, param string) *APIError {
	if e == nil {
		return nil
	}
	dup := *e
	dup.Message = message
	dup.Param = param
	return &dup
}

// Predefined sentinel errors. Shared-store failures never surface here:
// they are converted to fallback behavior before reaching the HTTP layer.
var (
	ErrBadRequest       = &APIError{Type: "request_error", Code: "bad_request", Message: "Bad request", Status: http.StatusBadRequest}
	ErrNotFound         = &APIError{Type: "not_found", Code: "resource_not_found", Message: "Resource not found", Status: http.StatusNotFound}
	ErrMethodNotAllowed = &APIError{Type: "request_error", Code: "method_not_allowed", Message: "Method not allowed", Status: http.StatusMethodNotAllowed}
	ErrRateLimited      = &APIError{Type: "rate_limit_error", Code: "limit_exceeded", Message: "Rate limit exceeded", Status: http.StatusTooManyRequests}
	ErrInternal         = &APIError{Type: "internal_error", Code: "internal", Message: "Internal server error", Status: http.StatusInternalServerError}
)

// ErrorBody wraps an APIError in the response envelope, for writers that
// sit outside the request-logging middleware.
func ErrorBody(e *APIError) any {
	return errorResponse{Error: e}
}

// NewValidationError creates a 400 for an invalid request parameter.
func NewValidationError(message, param string) *APIError {
	return &APIError{
		Type:    "validation_error",
		Code:    "invalid_request",
		Message: message,
		Param:   param,
		Status:  http.StatusBadRequest,
	}
}
