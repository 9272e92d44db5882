package refreshrepofake

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/token/refresh"
)

var _ refresh.Repo = (*FakeRefreshTokenRepo)(nil)

type FakeRefreshTokenRepo struct {
	tokens map[string]*refresh.Token
	nextID int64
	lock   sync.RWMutex
}

func NewFakeRefreshTokenRepo() *FakeRefreshTokenRepo {
	return &FakeRefreshTokenRepo{
		tokens: make(map[string]*refresh.Token),
	}
}

func (tr *FakeRefreshTokenRepo) Insert(_ context.Context, t *refresh.Token) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()
	tr.insert(t)
	return nil
}

func (tr *FakeRefreshTokenRepo) insert(t *refresh.Token) {
	tr.nextID++
	t.ID = tr.nextID
	stored := *t
	tr.tokens[t.Token] = &stored
}

func (tr *FakeRefreshTokenRepo) Get(_ context.Context, token string) (*refresh.Token, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	t, ok := tr.tokens[token]
	if !ok {
		return nil, errors.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (tr *FakeRefreshTokenRepo) GetValid(_ context.Context, token string, now time.Time) (*refresh.Token, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	t, ok := tr.tokens[token]
	if !ok || !t.Valid(now) {
		return nil, errors.ErrInvalidRefreshToken
	}
	copied := *t
	return &copied, nil
}

func (tr *FakeRefreshTokenRepo) Rotate(_ context.Context, presented string, replacement *refresh.Token, now time.Time) (*refresh.Token, error) {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	t, ok := tr.tokens[presented]
	if !ok || !t.Valid(now) {
		return nil, errors.ErrInvalidRefreshToken
	}
	t.Revoked = true

	replacement.UserID = t.UserID
	tr.insert(replacement)
	return replacement, nil
}

func (tr *FakeRefreshTokenRepo) Revoke(_ context.Context, token string) (bool, error) {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	t, ok := tr.tokens[token]
	if !ok || t.Revoked {
		return false, nil
	}
	t.Revoked = true
	return true, nil
}

// Len returns the number of ledger rows.
func (tr *FakeRefreshTokenRepo) Len() int {
	tr.lock.RLock()
	defer tr.lock.RUnlock()
	return len(tr.tokens)
}
