package domain

import "errors"

var (
	// ErrInvalidMessage is returned when a delivery cannot be decoded into a reconcile request
	ErrInvalidMessage = errors.New("invalid reconcile message")

	// ErrUnroutable is returned when the requested provider is not served by this worker
	ErrUnroutable = errors.New("provider not served by this worker")
)

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
