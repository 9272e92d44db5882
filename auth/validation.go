package auth

import (
	"strings"
)

const (
	maxUsernameLength = 64
	maxPasswordLength = 72 // bcrypt rejects longer passwords
)

// ValidateRegistration checks the registration form before anything is stored
func ValidateRegistration(req RegisterRequest) error {
	if err := validateUsername(req.Username); err != nil {
		return err
	}

	// Email is stored as given, encrypted
	if req.Password == "" {
		return &FieldError{Field: "password", Message: "Password is required."}
	}
	if len(req.Password) > maxPasswordLength {
		return &FieldError{Field: "password", Message: "Password is too long."}
	}
	return nil
}

// ValidateLogin checks that both credentials were supplied
func ValidateLogin(req LoginRequest) error {
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return &FieldError{Field: "username", Message: MsgInvalidCredentials}
	}
	return nil
}

func validateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return &FieldError{Field: "username", Message: "Username is required."}
	}
	if len(username) > maxUsernameLength {
		return &FieldError{Field: "username", Message: "Username is too long."}
	}
	if strings.ContainsAny(username, "\n\r\t") {
		return &FieldError{Field: "username", Message: "Username contains invalid characters."}
	}
	return nil
}
