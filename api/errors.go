package api

import (
	"errors"

	"github.com/ruteri/namespace-registry/interfaces"
)

var errorCodes = []struct {
	code string
	err  error
}{
	{"unauthorized", interfaces.ErrUnauthorized},
	{"already_initialized", interfaces.ErrAlreadyInitialized},
	{"already_active_or_in_grace", interfaces.ErrAlreadyActiveOrInGrace},
	{"insufficient_balance", interfaces.ErrInsufficientBalance},
	{"not_found", interfaces.ErrNotFound},
	{"unsupported_operation", interfaces.ErrUnsupportedOperation},
	{"invalid_duration", interfaces.ErrInvalidDuration},
	{"zero_address", interfaces.ErrZeroAddress},
}

// ErrorCode names the registry error err wraps, or "" if it wraps none.
func ErrorCode(err error) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}

// ErrorForCode is the inverse of ErrorCode.
func ErrorForCode(code string) error {
	for _, c := range errorCodes {
		if c.code == code {
			return c.err
		}
	}
	return nil
}
