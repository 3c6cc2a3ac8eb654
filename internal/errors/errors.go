package errors

import (
	"errors"
	"fmt"
)

// Common error types for the auth client
var (
	// Configuration errors
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrUnknownBackend    = errors.New("unknown store backend")
	ErrMissingPassphrase = errors.New("store passphrase is required")

	// Storage errors
	ErrNotFound      = errors.New("not found")
	ErrCorruptRecord = errors.New("corrupt record")

	// Token errors
	ErrInvalidToken = errors.New("invalid token")

	// General errors
	ErrInternal = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}
