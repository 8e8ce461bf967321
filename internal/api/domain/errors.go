package domain

import (
	"errors"
	"strings"
)

var (
	// ErrJobNotFound is returned when a job does not exist or is not owned by the caller
	ErrJobNotFound = errors.New("job not found")

	// ErrEventNotFound is returned when a job event does not exist or is not owned by the caller
	ErrEventNotFound = errors.New("job event not found")

	// ErrInvalidInput marks validation failures detected before any storage call
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotConfigured is returned when a feature needs credentials or settings that are missing
	ErrNotConfigured = errors.New("not configured")

	// ErrProviderUnavailable is returned when the active storage backend cannot be reached
	ErrProviderUnavailable = errors.New("storage provider unavailable")

	// ErrAuthRequired is returned when the hosted backend is used without an authenticated caller
	ErrAuthRequired = errors.New("authentication required")

	// ErrProviderLocked is returned when a non-hosted provider is selected while authenticated
	ErrProviderLocked = errors.New("provider is locked to hosted while signed in")

	// ErrProviderNotSelectable is returned when the provider is not enabled for this deployment
	ErrProviderNotSelectable = errors.New("provider is not selectable in this deployment")
)

// ValidationError collects field problems found at the boundary
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + strings.Join(e.Fields, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func (e *ValidationError) add(msg string) {
	e.Fields = append(e.Fields, msg)
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
