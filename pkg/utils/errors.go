package utils

import (
	"errors"
	"net/http"
)

// HTTPError terminates request handling with a message and a status code.
type HTTPError struct {
	Message string
	Code    int
}

func NewHTTPError(message string, code int) *HTTPError {
	return &HTTPError{Message: message, Code: code}
}

func (e *HTTPError) Error() string {
	return e.Message
}

// StatusCode falls back to 500 when no code was set.
func (e *HTTPError) StatusCode() int {
	if e.Code == 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

// AsHTTPError unwraps err into an HTTPError. Anything else becomes a 500
// with a generic message so internals never leak to the client.
func AsHTTPError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return NewHTTPError("Internal server error", http.StatusInternalServerError)
}
