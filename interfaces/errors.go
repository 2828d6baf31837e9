package interfaces

import "errors"

var (
	// ErrUnauthorized is returned when the caller fails an ownership or admin check.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAlreadyInitialized is returned when an initializer is invoked a second time.
	ErrAlreadyInitialized = errors.New("already initialized")

	// ErrAlreadyActiveOrInGrace is returned when registering a token that is live or
	// in its grace period on behalf of someone other than the incumbent holder.
	ErrAlreadyActiveOrInGrace = errors.New("registration active or in grace period")

	// ErrInsufficientBalance is returned when a transfer exceeds the current holding.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNotFound is returned when an operation requires a record that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedOperation is returned when the currently bound implementation
	// does not expose the requested entry point. It is distinct from ErrUnauthorized.
	ErrUnsupportedOperation = errors.New("no such operation")

	// ErrInvalidDuration is returned when a registration duration is outside policy bounds.
	ErrInvalidDuration = errors.New("invalid registration duration")

	// ErrZeroAddress is returned when an administrator binding would be set to the zero address.
	ErrZeroAddress = errors.New("zero address")
)
