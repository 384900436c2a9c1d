package provider

import (
	"errors"
	"fmt"
)

// StatusError is a non-success HTTP reply from a generation backend.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.Status, e.Message)
}

// Transient reports whether the backend is expected to recover on its own:
// rate limits, server errors and Anthropic's 529 overload.
func (e *StatusError) Transient() bool {
	return e.Status == 429 || e.Status == 529 || (e.Status >= 500 && e.Status <= 504)
}

// TransportError means the request never got a reply, e.g. the local model
// server is not running.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "request failed: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// Unreachable wraps err as a TransportError.
func Unreachable(err error) error {
	return &TransportError{Err: err}
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}
