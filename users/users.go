package users

import "time"

// User is a stored account. Username and email only exist in encrypted form,
// first and last name are kept in plain text.
type User struct {
	ID                int64     `json:"id"`                   // Numeric identity
	EncryptedUsername string    `json:"-"`                    // Ciphertext of the username, used as the token subject
	EncryptedEmail    string    `json:"-"`                    // Ciphertext of the email
	UsernameLookup    string    `json:"-"`                    // Unique equality key derived from the username
	FirstName         string    `json:"first_name,omitempty"` // First name of the user
	LastName          string    `json:"last_name,omitempty"`  // Last name of the user
	PasswordHash      string    `json:"-"`                    // bcrypt digest - never serialize
	Role              Role      `json:"role"`                 // Exactly one role per user
	CreatedAt         time.Time `json:"created_at,omitempty"` // Date and time when the user registered
}

// CheckPassword checks a password against the user's stored hash
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}
