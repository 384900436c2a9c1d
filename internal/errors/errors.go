package errors

import (
	"errors"
	"fmt"
)

// Error codes for programmatic handling.
const (
	CodeConfigInvalid    = "CONFIG_INVALID"
	CodeProviderError    = "PROVIDER_ERROR"
	CodeAPIKeyMissing    = "API_KEY_MISSING"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeEmbedderError    = "EMBEDDER_ERROR"
	CodeFactNotFound     = "FACT_NOT_FOUND"
	CodeTimeout          = "TIMEOUT"
	CodeInvalidInput     = "INVALID_INPUT"
)

// AiyoError is a structured error with a code and actionable suggestion.
type AiyoError struct {
	Code       string // machine-readable code (e.g. CONFIG_INVALID)
	Message    string // human-readable description
	Suggestion string // actionable fix
	Err        error  // wrapped underlying error
}

// Error implements the error interface.
func (e *AiyoError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap supports errors.Is / errors.As.
func (e *AiyoError) Unwrap() error {
	return e.Err
}

// New creates an AiyoError with the given code and message.
func New(code, message string) *AiyoError {
	return &AiyoError{Code: code, Message: message}
}

// Wrap creates an AiyoError wrapping an existing error.
func Wrap(code, message string, err error) *AiyoError {
	return &AiyoError{Code: code, Message: message, Err: err}
}

// WithSuggestion sets the suggestion and returns the same error.
func (e *AiyoError) WithSuggestion(suggestion string) *AiyoError {
	e.Suggestion = suggestion
	return e
}

// Is checks whether target matches this error's code.
func (e *AiyoError) Is(target error) bool {
	var ae *AiyoError
	if errors.As(target, &ae) {
		return e.Code == ae.Code
	}
	return false
}

// AsCode extracts the AiyoError code from an error, or "" if not an AiyoError.
func AsCode(err error) string {
	var ae *AiyoError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// Suggestion extracts the suggestion from an error, or "" if not an AiyoError.
func Suggestion(err error) string {
	var ae *AiyoError
	if errors.As(err, &ae) {
		return ae.Suggestion
	}
	return ""
}
