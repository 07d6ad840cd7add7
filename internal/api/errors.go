package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized matches any error caused by a 401. The session has already
// been cleared by the time a caller sees it.
var ErrUnauthorized = errors.New("authentication failed (HTTP 401): please log in again")

// APIError is a failure reported by the backend, either as a non-2xx status
// or as success:false in an otherwise successful response.
type APIError struct {
	Status  int
	Message string

	body []byte
}

func newAPIError(status int, msg string) *APIError {
	if msg == "" {
		msg = unknownError
	}
	return &APIError{Status: status, Message: msg}
}

func (e *APIError) Error() string {
	switch {
	case e.Status == http.StatusUnauthorized:
		return fmt.Sprintf("%s: %s", ErrUnauthorized, e.Message)
	case e.Status >= 300:
		return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
	default:
		return e.Message
	}
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// Message returns the user-facing text of err: the server message for API
// errors, the full error text otherwise.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
