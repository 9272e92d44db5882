package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStoreSlidingExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewInMemoryStore(30 * time.Minute)
	store.nowFunc = func() time.Time { return now }

	s := New()
	s.AccessToken = "access"
	s.RefreshToken = "refresh"
	s.Username = "alice"
	s.Role = users.RoleUser
	require.NoError(t, store.Save(ctx, s))
	require.Equal(t, now.Add(30*time.Minute), s.ExpiresAt)

	// Each read within the idle window pushes expiry forward
	now = now.Add(20 * time.Minute)
	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Username)
	require.Equal(t, now.Add(30*time.Minute), got.ExpiresAt)

	now = now.Add(20 * time.Minute)
	_, err = store.Get(ctx, s.ID)
	require.NoError(t, err)

	now = now.Add(30 * time.Minute)
	_, err = store.Get(ctx, s.ID)
	require.ErrorIs(t, err, errors.ErrSessionNotFound)
}

func TestInMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(time.Minute)

	s := New()
	s.AccessToken = "a1"
	require.NoError(t, store.Save(ctx, s))

	s.AccessToken = "mutated"
	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, "a1", got.AccessToken)
}

func TestInMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(time.Minute)

	s := New()
	require.NoError(t, store.Save(ctx, s))
	require.NoError(t, store.Delete(ctx, s.ID))
	require.NoError(t, store.Delete(ctx, s.ID))

	_, err := store.Get(ctx, s.ID)
	require.ErrorIs(t, err, errors.ErrSessionNotFound)

	_, err = store.Get(ctx, "")
	require.ErrorIs(t, err, errors.ErrSessionNotFound)
}

func TestInMemoryStoreDeleteExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := NewInMemoryStore(10 * time.Minute)
	store.nowFunc = func() time.Time { return now }

	stale := New()
	require.NoError(t, store.Save(ctx, stale))

	now = now.Add(5 * time.Minute)
	fresh := New()
	require.NoError(t, store.Save(ctx, fresh))

	removed, err := store.DeleteExpired(ctx, now.Add(7*time.Minute))
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = store.Get(ctx, fresh.ID)
	require.NoError(t, err)
}
