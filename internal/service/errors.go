package service

import (
	"errors"
	"fmt"
)

// Authentication and authorization always fail closed: an unknown error is
// a denial, never an allowance.
var (
	// ErrInvalidCredentials covers unknown identifiers and bad secrets
	// alike; the two are deliberately indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled is intentionally informative, unlike a plain
	// credential failure.
	ErrAccountDisabled = errors.New("account is disabled")
	// ErrGuestExpired is a login-time check; expiry itself does not mutate
	// the guest's state.
	ErrGuestExpired = errors.New("guest access has expired")

	ErrSessionInvalid = errors.New("session invalid or expired")

	// ErrAccessDenied must read the same whether the resource exists or
	// not, when the principal has no relationship to it.
	ErrAccessDenied = errors.New("access denied")

	ErrResourceNotFound = errors.New("resource not found")
	// ErrResourceUnavailable: the resource exists but is inactive or past
	// its purge schedule. Admin paths need this distinct from not-found.
	ErrResourceUnavailable = errors.New("resource unavailable")

	ErrConflict   = errors.New("conflicting or duplicate entity")
	ErrValidation = errors.New("validation failed")

	// ErrStorageUnavailable wraps durable-store failures; retry policy is
	// the caller's concern, the core never retries.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
