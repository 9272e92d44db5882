package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-session-auth/internal/errors"
)

// InMemoryStore keeps sessions in process memory.
type InMemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string]Session // sessionID -> Session
	idleTimeout time.Duration
	nowFunc     func() time.Time
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an in-memory store with the given idle timeout
func NewInMemoryStore(idleTimeout time.Duration) *InMemoryStore {
	return &InMemoryStore{
		sessions:    make(map[string]Session),
		idleTimeout: idleTimeout,
		nowFunc:     time.Now,
	}
}

// Get retrieves a session and slides its expiry
func (r *InMemoryStore) Get(_ context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, errors.ErrSessionNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, errors.ErrSessionNotFound
	}

	now := r.nowFunc()
	if !now.Before(session.ExpiresAt) {
		delete(r.sessions, id)
		return nil, errors.ErrSessionNotFound
	}

	session.ExpiresAt = now.Add(r.idleTimeout)
	r.sessions[id] = session
	return &session, nil
}

// Save creates or updates a session
func (r *InMemoryStore) Save(_ context.Context, session *Session) error {
	if session == nil || session.ID == "" {
		return errors.Wrapf(errors.ErrSessionNotFound, "session id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session.ExpiresAt = r.nowFunc().Add(r.idleTimeout)
	// Store a copy so callers cannot mutate it behind the lock
	r.sessions[session.ID] = *session
	return nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (r *InMemoryStore) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

// DeleteExpired removes every session whose expiry is not after now
func (r *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed, nil
}
