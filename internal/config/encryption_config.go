package config

import "strings"

const (
	PIIModeDeterministic = "deterministic"
	PIIModeSealed        = "sealed"

	// ivLength is the AES block size
	ivLength = 16
)

type EncryptionConfig interface {
	GetEncryptionKey() string
	GetEncryptionIV() string
	GetPIIMode() string
}

type Encryption struct {
	Key  string `env:"ENCRYPTION_KEY"`
	IV   string `env:"ENCRYPTION_IV"`
	Mode string `env:"PII_MODE" envDefault:"deterministic"`
}

var _ EncryptionConfig = Encryption{}

func (e Encryption) GetEncryptionKey() string {
	return e.Key
}

func (e Encryption) GetEncryptionIV() string {
	return e.IV
}

func (e Encryption) GetPIIMode() string {
	return e.Mode
}

func (e *Encryption) validate() error {
	if strings.TrimSpace(e.Key) == "" {
		return invalid("ENCRYPTION_KEY is required")
	}
	e.Mode = strings.ToLower(strings.TrimSpace(e.Mode))
	switch e.Mode {
	case PIIModeDeterministic:
		if len(e.IV) != ivLength {
			return invalid("ENCRYPTION_IV must be exactly %d bytes, got %d", ivLength, len(e.IV))
		}
	case PIIModeSealed:
	default:
		return invalid("PII_MODE %q is not supported", e.Mode)
	}
	return nil
}
