package pii

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"

	"github.com/jrsteele09/go-session-auth/internal/errors"
)

var _ Protector = (*DeterministicCipher)(nil)

// DeterministicCipher is AES-256-CBC with PKCS#7 padding under a fixed IV.
// The same plaintext always encrypts to the same ciphertext, which lets the
// ciphertext itself act as the lookup key. Equal values leak as equal
// ciphertexts across records.
type DeterministicCipher struct {
	block cipher.Block
	iv    []byte
}

// NewDeterministicCipher derives a 256 bit key as SHA-256(secret). The iv must
// be exactly one AES block long.
func NewDeterministicCipher(secret, iv string) (*DeterministicCipher, error) {
	if secret == "" {
		return nil, errors.Wrapf(errors.ErrConfiguration, "encryption secret is empty")
	}
	if len(iv) != aes.BlockSize {
		return nil, errors.Wrapf(errors.ErrConfiguration, "encryption iv must be %d bytes, got %d", aes.BlockSize, len(iv))
	}

	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return &DeterministicCipher{block: block, iv: []byte(iv)}, nil
}

func (c *DeterministicCipher) Encrypt(plaintext string) (string, error) {
	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(out, padded)
	return base64.StdEncoding.EncodeToString(out), nil
}

func (c *DeterministicCipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", invalidCiphertext("malformed base64")
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", invalidCiphertext("length is not a multiple of the block size")
	}

	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(out, raw)

	plain, ok := pkcs7Unpad(out, aes.BlockSize)
	if !ok {
		return "", invalidCiphertext("bad padding")
	}
	return string(plain), nil
}

// LookupKey is the ciphertext itself.
func (c *DeterministicCipher) LookupKey(plaintext string) (string, error) {
	return c.Encrypt(plaintext)
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(b[:len(b):len(b)], bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, bool) {
	if len(b) == 0 {
		return nil, false
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, false
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, false
		}
	}
	return b[:len(b)-n], true
}
