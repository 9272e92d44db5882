package sessions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-session-auth/users"
)

// Session is the server side credential cache for a browser. It is keyed by
// the session cookie and carries the token pair issued at login.
type Session struct {
	ID           string     // Value of the session cookie
	AccessToken  string     // Current bearer token, replaced on silent refresh
	RefreshToken string     // Refresh token issued at login, never rotated here
	Username     string     // Decrypted username
	Email        string     // Decrypted email
	Role         users.Role // Role at login time
	ExpiresAt    time.Time  // Sliding idle expiry
	CreatedAt    time.Time
}

// Store persists sessions.
//
// Get returns errors.ErrSessionNotFound for missing or idle-expired sessions
// and pushes ExpiresAt forward by the idle timeout on every hit. Save sets
// ExpiresAt the same way.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// New creates an empty session with a fresh id.
func New() *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}
