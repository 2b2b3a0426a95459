// Package apperr defines the sentinel errors the HTTP layer maps to status
// codes. Services return these (usually wrapped) instead of leaking raw
// storage or crypto errors to handlers.
package apperr

import "errors"

var (
	// ErrValidation marks missing or malformed input.
	ErrValidation = errors.New("validation error")

	// ErrConflict marks a uniqueness violation (username or email taken).
	ErrConflict = errors.New("already exists")

	// ErrUnauthenticated marks a missing, malformed, tampered or expired token.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidCredentials is the single login failure for both unknown
	// identifier and wrong password, so neither case is distinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrForbidden marks an ownership mismatch on an existing resource.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound marks an absent resource.
	ErrNotFound = errors.New("not found")

	// ErrStorageUnavailable marks a failed database interaction.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
