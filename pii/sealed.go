package pii

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"github.com/jrsteele09/go-session-auth/internal/errors"
	"golang.org/x/crypto/hkdf"
)

const (
	sealKeyInfo  = "pii-seal-v1"
	indexKeyInfo = "pii-index-v1"
)

var _ Protector = (*SealedCipher)(nil)

// SealedCipher encrypts with AES-256-GCM under a fresh nonce per call and
// looks records up through a keyed HMAC blind index. Ciphertexts of equal
// plaintexts differ, only the index reveals equality.
type SealedCipher struct {
	aead     cipher.AEAD
	indexKey []byte
}

// NewSealedCipher derives independent sealing and index keys from secret.
func NewSealedCipher(secret string) (*SealedCipher, error) {
	if secret == "" {
		return nil, errors.Wrapf(errors.ErrConfiguration, "encryption secret is empty")
	}

	sealKey, err := deriveKey(secret, sealKeyInfo)
	if err != nil {
		return nil, err
	}
	indexKey, err := deriveKey(secret, indexKeyInfo)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(sealKey)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &SealedCipher{aead: aead, indexKey: indexKey}, nil
}

func (c *SealedCipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", errors.Wrapf(err, "generate nonce")
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *SealedCipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", invalidCiphertext("malformed base64")
	}
	ns := c.aead.NonceSize()
	if len(raw) < ns+c.aead.Overhead() {
		return "", invalidCiphertext("too short")
	}
	plain, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", invalidCiphertext("authentication failed")
	}
	return string(plain), nil
}

func (c *SealedCipher) LookupKey(plaintext string) (string, error) {
	mac := hmac.New(sha256.New, c.indexKey)
	mac.Write([]byte(plaintext))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

func deriveKey(secret, info string) ([]byte, error) {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(info))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, errors.Wrapf(err, "derive %s key", info)
	}
	return key, nil
}
