package auth

import (
	"github.com/jrsteele09/go-session-auth/internal/errors"
)

// Messages shown to the user. They never reveal which part of a credential
// check failed.
const (
	MsgInvalidCredentials  = "Invalid username or password."
	MsgUsernameExists      = "Username already exists."
	MsgInvalidRefreshToken = "Invalid refresh token."
	MsgInvalidRole         = "Please choose a valid role."
	MsgSomethingWentWrong  = "Something went wrong, please try again."
)

// FieldError is a rejected form field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Message maps an error returned by Service onto user facing text.
func Message(err error) string {
	var fe *FieldError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &fe):
		return fe.Message
	case errors.Is(err, errors.ErrInvalidCredentials):
		return MsgInvalidCredentials
	case errors.Is(err, errors.ErrUsernameExists):
		return MsgUsernameExists
	case errors.Is(err, errors.ErrInvalidRefreshToken):
		return MsgInvalidRefreshToken
	case errors.Is(err, errors.ErrInvalidRole):
		return MsgInvalidRole
	default:
		return MsgSomethingWentWrong
	}
}
