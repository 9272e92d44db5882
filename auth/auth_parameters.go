package auth

import (
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/jrsteele09/go-session-auth/users"
)

// Landing pages by role
const (
	AdminLandingPath   = "/Admin/Index"
	UserLandingPath    = "/User/Index"
	DefaultLandingPath = "/"
)

// RegisterRequest holds the fields of the registration form.
type RegisterRequest struct {
	Username  string // Plain username, encrypted before storage
	Email     string // Plain email, encrypted before storage
	FirstName string
	LastName  string
	Password  string
	RoleID    string // Submitted role id, must name a seeded role
}

// LoginRequest holds the fields of the login form.
type LoginRequest struct {
	Username string
	Password string
}

// LoginResult is a signed in session and where to send the browser next.
type LoginResult struct {
	Session     *sessions.Session
	User        *users.User
	LandingPath string
}

// LandingPath returns the page a user of role lands on after login.
func LandingPath(role users.Role) string {
	switch role {
	case users.RoleAdmin:
		return AdminLandingPath
	case users.RoleUser:
		return UserLandingPath
	default:
		return DefaultLandingPath
	}
}
