package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by providers and callers. Classify with errors.Is.
var (
	ErrNetwork           = errors.New("network failure")
	ErrMalformedResponse = errors.New("malformed response")
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrTimeout           = fmt.Errorf("timeout: %w", ErrNetwork)
)

// ProviderError describes a failed call to an external collaborator.
type ProviderError struct {
	Provider string
	Kind     error // one of the sentinel errors above
	Status   int   // HTTP status, 0 when no response was received
	Err      error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Provider, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the taxonomy kind and the underlying cause.
func (e *ProviderError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewProviderError builds a ProviderError of the given kind.
func NewProviderError(provider string, kind error, status int, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Status: status, Err: err}
}
