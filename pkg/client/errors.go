package client

import (
	"errors"
	"fmt"
	"time"
)

// Common errors returned by the client.
var (
	// ErrNotFound is matched by every NotFound-class UpstreamError.
	ErrNotFound = errors.New("resource not found")

	// ErrRetryExhausted is wrapped when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrUnsupportedEntity is returned for reference-only entity types
	// (species, vehicles) and unknown types.
	ErrUnsupportedEntity = errors.New("unsupported entity type")
)

// ErrorClass represents a classification of upstream failures.
type ErrorClass string

const (
	// ClassNotFound is a 404. Never retried.
	ClassNotFound ErrorClass = "not_found"

	// ClassRateLimited is a 429. Retried, honouring Retry-After.
	ClassRateLimited ErrorClass = "rate_limited"

	// ClassTimeout is a per-attempt deadline or a network timeout.
	ClassTimeout ErrorClass = "timeout"

	// ClassTransient is a 5xx or a connection failure.
	ClassTransient ErrorClass = "transient"

	// ClassInvalidResponse is a malformed body, an unexpected status or an
	// unparseable reference. Never retried.
	ClassInvalidResponse ErrorClass = "invalid_response"
)

// Retryable reports whether a failure of this class may be retried.
func (c ErrorClass) Retryable() bool {
	switch c {
	case ClassRateLimited, ClassTimeout, ClassTransient:
		return true
	default:
		return false
	}
}

// UpstreamError is a classified upstream failure.
type UpstreamError struct {
	Class      ErrorClass
	StatusCode int
	Path       string
	Attempts   int

	// RetryAfter is the upstream's requested delay, if it sent one.
	RetryAfter time.Duration

	Err error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("upstream %s error on %s", e.Class, e.Path)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is makes every NotFound-class error match ErrNotFound.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrNotFound && e.Class == ClassNotFound
}

// IsNotFound reports whether err is a NotFound upstream failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ClassOf returns the class of the UpstreamError in err's chain, or "" if
// there is none.
func ClassOf(err error) ErrorClass {
	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		return upstreamErr.Class
	}
	return ""
}
