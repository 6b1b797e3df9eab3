// Package errs defines the error taxonomy shared by the domain stores.
// Repositories and services return these sentinels (wrapped with context);
// handlers map them onto HTTP status classes at the boundary.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateKey is returned when a username or email collides with
	// an existing identity.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials is returned for both unknown usernames and
	// wrong passwords, so login failures never reveal which one it was.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrDeactivated is returned when the account exists and the password
	// matches but the account has been deactivated.
	ErrDeactivated = errors.New("account is deactivated")

	// ErrTokenExpired and ErrTokenInvalid distinguish an elapsed token
	// from a forged or malformed one.
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("token is invalid")

	// ErrInvalidDate is returned when booking or rescheduling to a date
	// strictly before today.
	ErrInvalidDate = errors.New("date must not be in the past")

	// ErrStorageUnavailable is returned when the backend cannot be
	// reached or a bounded lock wait is exhausted.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ValidationError carries the list of field-level problems detected before
// any persistence attempt.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Fields, "; "))
}

// Validation builds a ValidationError from field problem descriptions.
func Validation(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// AsValidation unwraps err into a *ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
