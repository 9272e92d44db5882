package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/token/refresh"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func newPostgresMock(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	return NewFromDB(sqlx.NewDb(mockDB, "postgres"), time.Second), mock
}

func TestRotateQueryShapeOnPostgres(t *testing.T) {
	db, mock := newPostgresMock(t)
	repo := NewRefreshTokenRepo(db)
	now := time.UnixMilli(1_700_000_000_000)

	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)^UPDATE refresh_tokens SET revoked = TRUE WHERE token = \$1 AND revoked = FALSE AND expires_at > \$2 RETURNING user_id$`).
		WithArgs("old", now.UnixMilli()).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(int64(42)))
	mock.ExpectQuery(`(?s)^INSERT INTO refresh_tokens .* VALUES \(\$1, \$2, \$3, FALSE, \$4\) RETURNING id$`).
		WithArgs("new", int64(42), now.Add(time.Hour).UnixMilli(), now.UnixMilli()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectCommit()

	got, err := repo.Rotate(context.Background(), "old", &refresh.Token{Token: "new", ExpiresAt: now.Add(time.Hour)}, now)
	require.NoError(t, err)
	require.Equal(t, int64(42), got.UserID)
	require.Equal(t, int64(7), got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRotateLosingRaceRollsBack(t *testing.T) {
	db, mock := newPostgresMock(t)
	repo := NewRefreshTokenRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`^UPDATE refresh_tokens`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))
	mock.ExpectRollback()

	_, err := repo.Rotate(context.Background(), "old", &refresh.Token{Token: "new"}, time.Now())
	require.ErrorIs(t, err, errors.ErrInvalidRefreshToken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserMapsPostgresUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"lib/pq", &pq.Error{Code: "23505"}},
		{"pgx", &pgconn.PgError{Code: "23505"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newPostgresMock(t)
			mock.ExpectQuery(`(?s)^INSERT INTO users .* RETURNING id$`).WillReturnError(tt.err)

			err := NewUserRepo(db).Create(context.Background(), newTestUser("eA==", users.RoleUser))
			require.ErrorIs(t, err, errors.ErrUsernameExists)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	require.False(t, isUniqueViolation(nil))
	require.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	require.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	require.True(t, isUniqueViolation(errors.Wrapf(&pq.Error{Code: "23505"}, "insert")))
	require.True(t, isUniqueViolation(errors.Wrapf(errors.ErrNotFound, "UNIQUE constraint failed: users.username_lookup")))
}
