package storage

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/users"
)

type userRow struct {
	ID                int64  `db:"id"`
	EncryptedUsername string `db:"encrypted_username"`
	EncryptedEmail    string `db:"encrypted_email"`
	UsernameLookup    string `db:"username_lookup"`
	FirstName         string `db:"first_name"`
	LastName          string `db:"last_name"`
	PasswordHash      string `db:"password_hash"`
	RoleID            int    `db:"role_id"`
	CreatedAt         int64  `db:"created_at"`
}

func (r userRow) toUser() (*users.User, error) {
	role, err := users.RoleFromID(r.RoleID)
	if err != nil {
		return nil, err
	}
	return &users.User{
		ID:                r.ID,
		EncryptedUsername: r.EncryptedUsername,
		EncryptedEmail:    r.EncryptedEmail,
		UsernameLookup:    r.UsernameLookup,
		FirstName:         r.FirstName,
		LastName:          r.LastName,
		PasswordHash:      r.PasswordHash,
		Role:              role,
		CreatedAt:         fromMillis(r.CreatedAt),
	}, nil
}

const userColumns = `id, encrypted_username, encrypted_email, username_lookup, first_name, last_name, password_hash, role_id, created_at`

// UserRepo is the SQL credential store.
type UserRepo struct {
	db *DB
}

var _ users.Repo = (*UserRepo)(nil)

func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts user and sets its ID. A duplicate lookup key is reported as
// errors.ErrUsernameExists.
func (r *UserRepo) Create(ctx context.Context, user *users.User) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if user.CreatedAt.IsZero() {
		user.CreatedAt = nowUTC()
	}

	query := r.db.Rebind(`INSERT INTO users (encrypted_username, encrypted_email, username_lookup, first_name, last_name, password_hash, role_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)

	var id int64
	err := r.db.QueryRowxContext(ctx, query,
		user.EncryptedUsername,
		user.EncryptedEmail,
		user.UsernameLookup,
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		user.Role.ID(),
		toMillis(user.CreatedAt),
	).Scan(&id)
	if isUniqueViolation(err) {
		return errors.ErrUsernameExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	user.ID = id
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*users.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UserRepo) GetByUsernameLookup(ctx context.Context, lookup string) (*users.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username_lookup = ?`, lookup)
}

func (r *UserRepo) ExistsByUsernameLookup(ctx context.Context, lookup string) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var exists bool
	err := r.db.GetContext(ctx, &exists, r.db.Rebind(`SELECT EXISTS (SELECT 1 FROM users WHERE username_lookup = ?)`), lookup)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return exists, nil
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (*users.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var row userRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(query), arg)
	if isNoRows(err) {
		return nil, errors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return row.toUser()
}
