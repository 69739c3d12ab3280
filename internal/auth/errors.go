package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password. Callers must not be able to tell them apart.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrDuplicateUsername = errors.New("username is already taken")
	ErrDuplicateEmail    = errors.New("email is already in use")

	// ErrRoleRegistryCorrupt means a seeded role could not be resolved.
	// It is an internal invariant failure, not a user error.
	ErrRoleRegistryCorrupt = errors.New("role registry is missing a seeded role")

	ErrAccountNotFound = errors.New("account not found")

	ErrTooManyAttempts = errors.New("too many sign-in attempts")
)

// Token validation failures. The HTTP layer collapses all of them into a
// single unauthenticated response.
var (
	ErrTokenInvalidSignature = errors.New("token signature is invalid")
	ErrTokenExpired          = errors.New("token is expired")
	ErrTokenMalformed        = errors.New("token is malformed")
)

type ValidationKind string

const (
	KindRequired     ValidationKind = "required"
	KindTooShort     ValidationKind = "too_short"
	KindTooLong      ValidationKind = "too_long"
	KindInvalidEmail ValidationKind = "invalid_email"
)

// ValidationError reports a failed precondition on a single input field.
type ValidationError struct {
	Field string
	Kind  ValidationKind
	Limit int
	// Unit names what Limit counts; empty means characters.
	Unit string
}

func (e *ValidationError) Error() string {
	unit := e.Unit
	if unit == "" {
		unit = "characters"
	}
	switch e.Kind {
	case KindRequired:
		return fmt.Sprintf("%s is required", e.Field)
	case KindTooShort:
		return fmt.Sprintf("%s must be at least %d %s", e.Field, e.Limit, unit)
	case KindTooLong:
		return fmt.Sprintf("%s must be at most %d %s", e.Field, e.Limit, unit)
	case KindInvalidEmail:
		return fmt.Sprintf("%s must be a valid email address", e.Field)
	default:
		return fmt.Sprintf("%s is invalid", e.Field)
	}
}
