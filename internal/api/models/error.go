package models

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every API error.
type ErrorResponse struct {
	// Error is a human-readable message safe to show to clients.
	Error string `json:"error"`

	// RequestID correlates the response with server logs.
	RequestID string `json:"requestId,omitempty"`

	status int
}

// NewError creates an error body for the given status.
func NewError(status int, message, requestID string) *ErrorResponse {
	return &ErrorResponse{
		Error:     message,
		RequestID: requestID,
		status:    status,
	}
}

// Status returns the HTTP status code of the error.
func (e *ErrorResponse) Status() int {
	return e.status
}

// Write writes the error as JSON to the ResponseWriter.
func (e *ErrorResponse) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	if e.RequestID != "" {
		w.Header().Set("X-Request-Id", e.RequestID)
	}
	w.WriteHeader(e.status)
	_ = json.NewEncoder(w).Encode(e)
}

// NewNotFound creates a 404 Not Found error.
func NewNotFound(requestID, message string) *ErrorResponse {
	return NewError(http.StatusNotFound, message, requestID)
}

// NewForbidden creates a 403 Forbidden error.
func NewForbidden(requestID, message string) *ErrorResponse {
	return NewError(http.StatusForbidden, message, requestID)
}

// NewTooManyRequests creates a 429 Too Many Requests error.
func NewTooManyRequests(requestID, message string) *ErrorResponse {
	return NewError(http.StatusTooManyRequests, message, requestID)
}

// NewInternalError creates a 500 Internal Server Error.
func NewInternalError(requestID, message string) *ErrorResponse {
	return NewError(http.StatusInternalServerError, message, requestID)
}

// NewServiceUnavailable creates a 503 Service Unavailable error.
func NewServiceUnavailable(requestID, message string) *ErrorResponse {
	return NewError(http.StatusServiceUnavailable, message, requestID)
}
