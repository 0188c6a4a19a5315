package pipeline

import (
	"errors"
	"fmt"
)

// ServiceError means the completion service was unreachable or refused the call.
type ServiceError struct {
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("completion service: %s: %v", e.Message, e.Cause)
	}
	return "completion service: " + e.Message
}

func (e *ServiceError) Unwrap() error { return e.Cause }

// NavigationError means a page failed to load within its timeout.
type NavigationError struct {
	URL     string
	Message string
	Cause   error
}

func (e *NavigationError) Error() string {
	msg := fmt.Sprintf("navigation to %s failed", e.URL)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *NavigationError) Unwrap() error { return e.Cause }

// ExtractionError means DOM evaluation failed on a loaded page.
type ExtractionError struct {
	URL     string
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string {
	msg := fmt.Sprintf("extraction on %s failed", e.URL)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

// ParseError means a model response did not match the stage's schema.
type ParseError struct {
	Stage   string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%s: unusable model response", e.Stage)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Cause }

// ValidationError means the run request itself is malformed. It is the only
// error that aborts a run.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Message
	}
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Message)
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Outcome is the tagged result of a best-effort stage: either the parsed
// value or the documented fallback together with the error that forced it.
type Outcome[T any] struct {
	Value    T
	Fallback bool
	Err      error
}

func ok[T any](v T) Outcome[T] { return Outcome[T]{Value: v} }

func fallback[T any](v T, err error) Outcome[T] {
	return Outcome[T]{Value: v, Fallback: true, Err: err}
}
