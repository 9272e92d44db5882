package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/pii"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/jrsteele09/go-session-auth/users"
)

type sessionRow struct {
	ID           string `db:"id"`
	AccessToken  string `db:"access_token"`
	RefreshToken string `db:"refresh_token"`
	Username     string `db:"username"`
	Email        string `db:"email"`
	RoleID       int    `db:"role_id"`
	ExpiresAt    int64  `db:"expires_at"`
	CreatedAt    int64  `db:"created_at"`
}

const upsertSessionSQL = `INSERT INTO sessions (id, access_token, refresh_token, username, email, role_id, expires_at, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    access_token = excluded.access_token,
    refresh_token = excluded.refresh_token,
    username = excluded.username,
    email = excluded.email,
    role_id = excluded.role_id,
    expires_at = excluded.expires_at`

// SessionRepo is a sessions.Store kept in the database so sessions survive a
// restart and can be shared between instances. Username and email are stored
// encrypted when a protector is supplied.
type SessionRepo struct {
	db          *DB
	idleTimeout time.Duration
	protector   pii.Protector
}

var _ sessions.Store = (*SessionRepo)(nil)

func NewSessionRepo(db *DB, idleTimeout time.Duration, protector pii.Protector) *SessionRepo {
	return &SessionRepo{db: db, idleTimeout: idleTimeout, protector: protector}
}

func (r *SessionRepo) Get(ctx context.Context, id string) (*sessions.Session, error) {
	if id == "" {
		return nil, errors.ErrSessionNotFound
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var row sessionRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT id, access_token, refresh_token, username, email, role_id, expires_at, created_at FROM sessions WHERE id = ?`), id)
	if isNoRows(err) {
		return nil, errors.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}

	now := nowUTC()
	if toMillis(now) >= row.ExpiresAt {
		if _, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM sessions WHERE id = ?`), id); err != nil {
			return nil, fmt.Errorf("delete idle session: %w", err)
		}
		return nil, errors.ErrSessionNotFound
	}

	row.ExpiresAt = toMillis(now.Add(r.idleTimeout))
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE sessions SET expires_at = ? WHERE id = ?`), row.ExpiresAt, id); err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}
	return r.fromRow(row)
}

func (r *SessionRepo) Save(ctx context.Context, s *sessions.Session) error {
	if s == nil || s.ID == "" {
		return errors.Wrapf(errors.ErrSessionNotFound, "session id is required")
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	now := nowUTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.ExpiresAt = now.Add(r.idleTimeout)

	username, err := r.seal(s.Username)
	if err != nil {
		return err
	}
	email, err := r.seal(s.Email)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, r.db.Rebind(upsertSessionSQL),
		s.ID, s.AccessToken, s.RefreshToken, username, email, s.Role.ID(), toMillis(s.ExpiresAt), toMillis(s.CreatedAt))
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM sessions WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM sessions WHERE expires_at <= ?`), toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *SessionRepo) fromRow(row sessionRow) (*sessions.Session, error) {
	username, err := r.open(row.Username)
	if err != nil {
		return nil, err
	}
	email, err := r.open(row.Email)
	if err != nil {
		return nil, err
	}
	return &sessions.Session{
		ID:           row.ID,
		AccessToken:  row.AccessToken,
		RefreshToken: row.RefreshToken,
		Username:     username,
		Email:        email,
		Role:         users.Role(row.RoleID),
		ExpiresAt:    fromMillis(row.ExpiresAt),
		CreatedAt:    fromMillis(row.CreatedAt),
	}, nil
}

func (r *SessionRepo) seal(v string) (string, error) {
	if r.protector == nil || v == "" {
		return v, nil
	}
	return r.protector.Encrypt(v)
}

func (r *SessionRepo) open(v string) (string, error) {
	if r.protector == nil || v == "" {
		return v, nil
	}
	return r.protector.Decrypt(v)
}
