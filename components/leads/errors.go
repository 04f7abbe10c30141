package leads

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials signals an email/password pair that matched no credential.
	ErrInvalidCredentials = errors.New("leads: invalid email or password")
	// ErrMissingCredentials signals an empty email or password.
	ErrMissingCredentials = errors.New("leads: email and password are required")
	// ErrLeadNotFound is returned when no lead matches the requested id.
	ErrLeadNotFound = errors.New("leads: lead not found")
	// ErrUnsuccessfulResponse marks a payload whose success flag was false.
	ErrUnsuccessfulResponse = errors.New("leads: backend reported failure")
	// ErrInvalidPayload marks a payload that failed schema validation.
	ErrInvalidPayload = errors.New("leads: invalid payload")
	// ErrNotAuthenticated is returned by Service reads made without a logged-in identity.
	ErrNotAuthenticated = errors.New("leads: not authenticated")
	// ErrStaleGeneration is returned when a load was pinned to a cache generation that has been invalidated.
	ErrStaleGeneration = errors.New("leads: quotation cache generation moved")

	errMissingSource = errors.New("leads: quotation source not configured")
)

// AuthError wraps a rejected login attempt.
type AuthError struct {
	Email string
	Err   error
}

func (e *AuthError) Error() string {
	if e.Email == "" {
		return fmt.Sprintf("leads: auth: %v", e.Err)
	}
	return fmt.Sprintf("leads: auth %s: %v", e.Email, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// FetchError wraps a network, status, or payload failure while talking to the backend.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("leads: fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsAuthError reports whether err is an AuthError.
func IsAuthError(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

// IsFetchError reports whether err is a FetchError.
func IsFetchError(err error) bool {
	var target *FetchError
	return errors.As(err, &target)
}

func asFetchError(op string, err error) error {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}
	return &FetchError{Op: op, Err: err}
}
