package refresh

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/jrsteele09/go-session-auth/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// tokenLength is the number of random bytes behind each refresh token
const tokenLength = 64

// Manager issues, validates and rotates refresh tokens against the ledger.
type Manager struct {
	repo   Repo
	expiry time.Duration
}

// NewManager creates a refresh token manager. expiry is the lifetime of every
// issued token and must be positive.
func NewManager(repo Repo, expiry time.Duration) (*Manager, error) {
	if expiry <= 0 {
		return nil, errors.Wrapf(errors.ErrConfiguration, "refresh token expiry must be positive")
	}
	return &Manager{repo: repo, expiry: expiry}, nil
}

// Issue generates a new token for userID and persists it.
func (m *Manager) Issue(ctx context.Context, userID int64) (*Token, error) {
	t, err := m.newToken(userID)
	if err != nil {
		return nil, err
	}
	if err := m.repo.Insert(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	return t, nil
}

// Lookup returns the token when it exists, is not revoked and has not expired.
// It never changes ledger state.
func (m *Manager) Lookup(ctx context.Context, token string) (*Token, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.ErrInvalidRefreshToken
	}
	return m.repo.GetValid(ctx, token, NowTimeFunc())
}

// Rotate revokes the presented token and returns its successor. A token can be
// rotated at most once, a second attempt gets errors.ErrInvalidRefreshToken.
func (m *Manager) Rotate(ctx context.Context, token string) (*Token, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.ErrInvalidRefreshToken
	}
	replacement, err := m.newToken(0)
	if err != nil {
		return nil, err
	}
	return m.repo.Rotate(ctx, token, replacement, NowTimeFunc())
}

// Revoke marks token as revoked. Revoking an unknown or already revoked token
// is not an error, the result reports whether anything changed.
func (m *Manager) Revoke(ctx context.Context, token string) (bool, error) {
	if strings.TrimSpace(token) == "" {
		return false, nil
	}
	return m.repo.Revoke(ctx, token)
}

func (m *Manager) newToken(userID int64) (*Token, error) {
	tokenBytes := make([]byte, tokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}

	now := NowTimeFunc().UTC()
	return &Token{
		Token:     base64.StdEncoding.EncodeToString(tokenBytes),
		UserID:    userID,
		ExpiresAt: now.Add(m.expiry),
		CreatedAt: now,
	}, nil
}
