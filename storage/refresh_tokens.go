package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/token/refresh"
)

type refreshTokenRow struct {
	ID        int64  `db:"id"`
	Token     string `db:"token"`
	UserID    int64  `db:"user_id"`
	ExpiresAt int64  `db:"expires_at"`
	Revoked   bool   `db:"revoked"`
	CreatedAt int64  `db:"created_at"`
}

func (r refreshTokenRow) toToken() *refresh.Token {
	return &refresh.Token{
		ID:        r.ID,
		Token:     r.Token,
		UserID:    r.UserID,
		ExpiresAt: fromMillis(r.ExpiresAt),
		Revoked:   r.Revoked,
		CreatedAt: fromMillis(r.CreatedAt),
	}
}

const (
	refreshTokenColumns = `id, token, user_id, expires_at, revoked, created_at`

	insertRefreshTokenSQL = `INSERT INTO refresh_tokens (token, user_id, expires_at, revoked, created_at) VALUES (?, ?, ?, FALSE, ?) RETURNING id`

	// The conditional update is the whole rotation guard: only one caller can
	// flip a given row, everyone else matches nothing.
	revokeValidRefreshTokenSQL = `UPDATE refresh_tokens SET revoked = TRUE WHERE token = ? AND revoked = FALSE AND expires_at > ? RETURNING user_id`
)

// RefreshTokenRepo is the SQL refresh token ledger.
type RefreshTokenRepo struct {
	db *DB
}

var _ refresh.Repo = (*RefreshTokenRepo)(nil)

func NewRefreshTokenRepo(db *DB) *RefreshTokenRepo {
	return &RefreshTokenRepo{db: db}
}

func (r *RefreshTokenRepo) Insert(ctx context.Context, t *refresh.Token) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if t.CreatedAt.IsZero() {
		t.CreatedAt = nowUTC()
	}
	var id int64
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(insertRefreshTokenSQL),
		t.Token, t.UserID, toMillis(t.ExpiresAt), toMillis(t.CreatedAt)).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	t.ID = id
	t.Revoked = false
	return nil
}

// Get returns the row for token in any state.
func (r *RefreshTokenRepo) Get(ctx context.Context, token string) (*refresh.Token, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var row refreshTokenRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE token = ?`), token)
	if isNoRows(err) {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select refresh token: %w", err)
	}
	return row.toToken(), nil
}

func (r *RefreshTokenRepo) GetValid(ctx context.Context, token string, now time.Time) (*refresh.Token, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var row refreshTokenRow
	err := r.db.GetContext(ctx, &row,
		r.db.Rebind(`SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE token = ? AND revoked = FALSE AND expires_at > ?`),
		token, toMillis(now))
	if isNoRows(err) {
		return nil, errors.ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, fmt.Errorf("select refresh token: %w", err)
	}
	return row.toToken(), nil
}

// Rotate revokes presented and inserts replacement in one transaction.
func (r *RefreshTokenRepo) Rotate(ctx context.Context, presented string, replacement *refresh.Token, now time.Time) (*refresh.Token, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin rotation: %w", err)
	}
	defer rollback(tx)

	var userID int64
	err = tx.QueryRowxContext(ctx, tx.Rebind(revokeValidRefreshTokenSQL), presented, toMillis(now)).Scan(&userID)
	if isNoRows(err) {
		return nil, errors.ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, fmt.Errorf("revoke refresh token: %w", err)
	}

	if replacement.CreatedAt.IsZero() {
		replacement.CreatedAt = now.UTC()
	}
	replacement.UserID = userID
	var id int64
	err = tx.QueryRowxContext(ctx, tx.Rebind(insertRefreshTokenSQL),
		replacement.Token, replacement.UserID, toMillis(replacement.ExpiresAt), toMillis(replacement.CreatedAt)).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert replacement refresh token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit rotation: %w", err)
	}
	replacement.ID = id
	replacement.Revoked = false
	return replacement, nil
}

func (r *RefreshTokenRepo) Revoke(ctx context.Context, token string) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE refresh_tokens SET revoked = TRUE WHERE token = ? AND revoked = FALSE`), token)
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}
	return n > 0, nil
}
