// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates missing or malformed required fields.
	ErrValidation = errors.New("validation failed")

	// ErrForbidden indicates the caller's role lacks permission for the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidCredentials indicates failed authentication. Deliberately uniform:
	// unknown username and wrong password are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrDecryption indicates ciphertext unreadable under the active key.
	ErrDecryption = errors.New("decryption failed")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., username taken).
	ErrAlreadyExists = errors.New("already exists")
)
