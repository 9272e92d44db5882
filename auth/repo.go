package auth

import (
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/jrsteele09/go-session-auth/users"
)

// Repos holds all repository dependencies for the Service
type Repos struct {
	Users    users.Repo     // Credential store
	Sessions sessions.Store // Server side sessions keyed by cookie
}
