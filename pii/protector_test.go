package pii_test

import (
	"crypto/aes"
	"encoding/base64"
	"testing"

	"github.com/jrsteele09/go-session-auth/internal/config"
	"github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/pii"
	"github.com/stretchr/testify/require"
)

const (
	secret = "pii-test-secret"
	iv     = "0123456789abcdef"
)

var samples = []string{
	"",
	"alice",
	"a@x.com",
	"exactly16bytes!!",
	"ünïcødé user name",
	"a much longer value that spans several AES blocks to exercise chaining",
}

func TestDeterministicCipher(t *testing.T) {
	c, err := pii.NewDeterministicCipher(secret, iv)
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		for _, s := range samples {
			ct, err := c.Encrypt(s)
			require.NoError(t, err)
			pt, err := c.Decrypt(ct)
			require.NoError(t, err)
			require.Equal(t, s, pt)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		for _, s := range samples {
			a, err := c.Encrypt(s)
			require.NoError(t, err)
			b, err := c.Encrypt(s)
			require.NoError(t, err)
			require.Equal(t, a, b)

			key, err := c.LookupKey(s)
			require.NoError(t, err)
			require.Equal(t, a, key)
		}
	})

	t.Run("distinct plaintexts differ", func(t *testing.T) {
		a, _ := c.Encrypt("alice")
		b, _ := c.Encrypt("bob")
		require.NotEqual(t, a, b)
	})

	t.Run("same inputs from a second instance", func(t *testing.T) {
		other, err := pii.NewDeterministicCipher(secret, iv)
		require.NoError(t, err)
		a, _ := c.Encrypt("alice")
		b, _ := other.Encrypt("alice")
		require.Equal(t, a, b)
	})

	t.Run("malformed base64", func(t *testing.T) {
		_, err := c.Decrypt("not base64 !!")
		require.ErrorIs(t, err, errors.ErrInvalidCiphertext)
	})

	t.Run("wrong length", func(t *testing.T) {
		_, err := c.Decrypt("YWJj")
		require.ErrorIs(t, err, errors.ErrInvalidCiphertext)
	})

	t.Run("different key", func(t *testing.T) {
		other, err := pii.NewDeterministicCipher("another-secret", iv)
		require.NoError(t, err)
		ct, err := c.Encrypt("alice")
		require.NoError(t, err)

		pt, err := other.Decrypt(ct)
		if err != nil {
			require.ErrorIs(t, err, errors.ErrInvalidCiphertext)
			return
		}
		require.NotEqual(t, "alice", pt)
	})

	t.Run("corrupted padding", func(t *testing.T) {
		// A full block of plaintext is followed by a block of padding only,
		// dropping it leaves a final byte of '!' which is not valid padding
		ct, err := c.Encrypt("exactly16bytes!!")
		require.NoError(t, err)
		raw, err := base64.StdEncoding.DecodeString(ct)
		require.NoError(t, err)
		require.Len(t, raw, 2*aes.BlockSize)

		_, err = c.Decrypt(base64.StdEncoding.EncodeToString(raw[:aes.BlockSize]))
		require.ErrorIs(t, err, errors.ErrInvalidCiphertext)
	})
}

func TestDeterministicCipherRejectsBadIV(t *testing.T) {
	for _, bad := range []string{"", "short", "0123456789abcdef0"} {
		_, err := pii.NewDeterministicCipher(secret, bad)
		require.ErrorIs(t, err, errors.ErrConfiguration)
	}
}

func TestSealedCipher(t *testing.T) {
	c, err := pii.NewSealedCipher(secret)
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		for _, s := range samples {
			ct, err := c.Encrypt(s)
			require.NoError(t, err)
			pt, err := c.Decrypt(ct)
			require.NoError(t, err)
			require.Equal(t, s, pt)
		}
	})

	t.Run("ciphertexts are randomized, lookup keys are stable", func(t *testing.T) {
		a, _ := c.Encrypt("alice")
		b, _ := c.Encrypt("alice")
		require.NotEqual(t, a, b)

		ka, _ := c.LookupKey("alice")
		kb, _ := c.LookupKey("alice")
		require.Equal(t, ka, kb)

		kc, _ := c.LookupKey("bob")
		require.NotEqual(t, ka, kc)
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		ct, _ := c.Encrypt("alice")
		other, err := pii.NewSealedCipher("another-secret")
		require.NoError(t, err)
		_, err = other.Decrypt(ct)
		require.ErrorIs(t, err, errors.ErrInvalidCiphertext)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := c.Decrypt("YWJj")
		require.ErrorIs(t, err, errors.ErrInvalidCiphertext)
	})
}

func TestNewProtector(t *testing.T) {
	p, err := pii.NewProtector(config.Encryption{Key: secret, IV: iv, Mode: config.PIIModeDeterministic})
	require.NoError(t, err)
	require.IsType(t, &pii.DeterministicCipher{}, p)

	p, err = pii.NewProtector(config.Encryption{Key: secret, Mode: config.PIIModeSealed})
	require.NoError(t, err)
	require.IsType(t, &pii.SealedCipher{}, p)

	_, err = pii.NewProtector(config.Encryption{Key: secret, Mode: "rot13"})
	require.ErrorIs(t, err, errors.ErrConfiguration)
}
