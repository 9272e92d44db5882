package errors

import (
	"errors"
	"fmt"
)

// Common error types for the credential and token lifecycle
var (
	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidRole        = errors.New("invalid role")

	// Token errors
	ErrInvalidToken        = errors.New("invalid token")
	ErrMissingSubject      = errors.New("token subject is empty")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// Encryption errors
	ErrInvalidCiphertext = errors.New("invalid ciphertext")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")

	// Configuration errors
	ErrConfiguration = errors.New("invalid configuration")

	// General errors
	ErrNotFound = errors.New("not found")
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

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
