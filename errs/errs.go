// Package errs defines the recoverable error taxonomy of the venue
// core. Every error is reported to the caller with a human-readable
// message; none are fatal to the process.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation covers bad amounts and malformed or missing input.
	ErrValidation = errors.New("validation error")

	// ErrInsufficientFunds means the balance is too low for the
	// requested trade or withdrawal.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidState means the target account or transaction is not
	// in the state the operation requires.
	ErrInvalidState = errors.New("invalid state transition")

	// ErrDuplicateReference means a deposit reused a UTR reference
	// already consumed by an approved deposit.
	ErrDuplicateReference = errors.New("duplicate reference")

	// ErrNotFound means the referenced user, asset, account, trade or
	// transaction does not exist.
	ErrNotFound = errors.New("not found")
)

// Validationf wraps ErrValidation with caller context.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf wraps ErrNotFound with caller context.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// InvalidStatef wraps ErrInvalidState with caller context.
func InvalidStatef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}
