package api

import (
	"errors"
	"fmt"
)

// ErrSessionExpired is returned when a request fails with 401 and the
// access token could not be refreshed. Callers match it with errors.Is.
var ErrSessionExpired = errors.New("your session has expired, please log in again")

// Error is a non-2xx response from the backend. Detail carries the
// backend-provided message when one could be parsed.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Detail, e.Status)
}

// StatusCode extracts the HTTP status from err, or 0 when err is not an
// API error. Session-expired errors report 401.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	if errors.Is(err, ErrSessionExpired) {
		return 401
	}
	return 0
}
