// Package pii encrypts personally identifying fields (username, email) before
// they reach storage and produces the key used to look them up again.
package pii

import (
	"fmt"

	"github.com/jrsteele09/go-session-auth/internal/config"
	"github.com/jrsteele09/go-session-auth/internal/errors"
)

// Protector encrypts and decrypts a single PII field.
//
// LookupKey returns the value stored in the unique lookup column for a
// plaintext. Equal plaintexts always produce equal lookup keys.
type Protector interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
	LookupKey(plaintext string) (string, error)
}

// NewProtector builds the Protector selected by the configured mode.
func NewProtector(cfg config.EncryptionConfig) (Protector, error) {
	switch cfg.GetPIIMode() {
	case config.PIIModeDeterministic, "":
		return NewDeterministicCipher(cfg.GetEncryptionKey(), cfg.GetEncryptionIV())
	case config.PIIModeSealed:
		return NewSealedCipher(cfg.GetEncryptionKey())
	default:
		return nil, errors.Wrapf(errors.ErrConfiguration, "pii mode %q", cfg.GetPIIMode())
	}
}

func invalidCiphertext(reason string) error {
	return fmt.Errorf("%w: %s", errors.ErrInvalidCiphertext, reason)
}
