package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrFetch covers network, DNS, timeout and non-2xx HTTP failures.
	ErrFetch = errors.New("fetch feed")
	// ErrFormat covers unparseable documents and documents without a title or entries.
	ErrFormat = errors.New("invalid feed document")

	ErrDuplicate       = errors.New("already exists")
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// RegistrationError is the single failure reported by feed registration.
type RegistrationError struct {
	URL string
	Err error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("cannot register feed %s: %v", e.URL, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// Cause returns the human-readable reason registration was refused.
func (e *RegistrationError) Cause() string {
	switch {
	case errors.Is(e.Err, ErrDuplicate):
		return "feed is already registered"
	case errors.Is(e.Err, ErrFormat):
		return "not a valid RSS or Atom feed: " + e.Err.Error()
	case errors.Is(e.Err, ErrFetch):
		return "feed could not be retrieved: " + e.Err.Error()
	default:
		return e.Err.Error()
	}
}
