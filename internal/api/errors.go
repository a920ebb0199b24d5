package api

import (
	"errors"
	"fmt"
)

// APIError is a failure response from the server, carrying the message field
// when the body provided one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server returned status %d", e.Status)
}

// ErrorMessage extracts the server-provided message from err, falling back to
// the given per-action string for network failures or bodies without one.
func ErrorMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
