package refresh

import (
	"context"
	"time"
)

// Token is one row of the refresh token ledger. Rows are never deleted, the
// only mutation is Revoked going from false to true.
type Token struct {
	ID        int64     // Ledger row id
	Token     string    // Opaque random string handed to the client
	UserID    int64     // Owning user
	ExpiresAt time.Time // Natural end of life
	Revoked   bool      // Set once when rotated away
	CreatedAt time.Time
}

// Valid reports whether the token can still be exchanged at now.
func (t *Token) Valid(now time.Time) bool {
	return t != nil && !t.Revoked && now.Before(t.ExpiresAt)
}

// Repo is the persisted ledger.
//
// Rotate is the only rotation primitive: it must flip the presented token to
// revoked and insert the replacement as a single atomic step, and only if the
// presented token is currently valid at now. When nothing matches it returns
// errors.ErrInvalidRefreshToken and stores nothing. On success the replacement
// carries the user id of the presented token.
//
// Revoke flips a non revoked token to revoked and reports whether a row changed.
type Repo interface {
	Insert(ctx context.Context, token *Token) error
	Get(ctx context.Context, token string) (*Token, error)
	GetValid(ctx context.Context, token string, now time.Time) (*Token, error)
	Rotate(ctx context.Context, presented string, replacement *Token, now time.Time) (*Token, error)
	Revoke(ctx context.Context, token string) (bool, error)
}
