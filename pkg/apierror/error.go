package apierror

import (
	"encoding/json"
	"net/http"
)

// Error represents a structured API error response.
type Error struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

type envelope struct {
	Success bool   `json:"success"`
	Error   *Error `json:"error"`
}

// ToJSON converts the error to JSON bytes.
func (e *Error) ToJSON() []byte {
	data, _ := json.Marshal(envelope{Success: false, Error: e})
	return data
}

// Write sends the error with its status code.
func (e *Error) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_, _ = w.Write(e.ToJSON())
}

func newError(status int, code, message, fallback string) *Error {
	if message == "" {
		message = fallback
	}
	return &Error{StatusCode: status, Code: code, Message: message}
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *Error {
	return newError(http.StatusBadRequest, "BAD_REQUEST", message, "Bad request")
}

// Unauthorized creates a 401 Unauthorized error.
func Unauthorized(message string) *Error {
	return newError(http.StatusUnauthorized, "UNAUTHORIZED", message, "Authentication required")
}

// Forbidden creates a 403 Forbidden error.
func Forbidden(message string) *Error {
	return newError(http.StatusForbidden, "FORBIDDEN", message, "Access denied")
}

// NotFound creates a 404 Not Found error.
func NotFound(message string) *Error {
	return newError(http.StatusNotFound, "NOT_FOUND", message, "Resource not found")
}

// InternalError creates a 500 Internal Server Error.
func InternalError(message string) *Error {
	return newError(http.StatusInternalServerError, "INTERNAL_ERROR", message, "An unexpected error occurred")
}

// ServiceUnavailable creates a 503 Service Unavailable error.
func ServiceUnavailable(message string) *Error {
	return newError(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", message, "Service temporarily unavailable")
}
