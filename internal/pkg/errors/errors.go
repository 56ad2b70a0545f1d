package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration covers invalid chunk parameters, embedding dimension
	// mismatches and index parameter mismatches. Never retried.
	ErrConfiguration = errors.New("configuration error")
	// ErrEmptyDocument is returned when ingestion input has no extractable chunks.
	ErrEmptyDocument = errors.New("empty document")
	// ErrCollaborator marks a failed or timed-out embedding/index/generation call.
	ErrCollaborator = errors.New("collaborator unavailable")
	ErrInvalid  = errors.New("invalid argument")
	ErrNotFound = errors.New("not found")
)

func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func IsCollaborator(err error) bool {
	return errors.Is(err, ErrCollaborator)
}

// Collaborator wraps an upstream failure so callers can match it with
// errors.Is(err, ErrCollaborator) while keeping the original message.
func Collaborator(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrCollaborator, err)
}

func Configuration(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

func Invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}
