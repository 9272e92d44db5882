package config

import "time"

const (
	SessionStoreMemory   = "memory"
	SessionStoreDatabase = "database"
)

type SessionConfig interface {
	GetSessionIdleTimeout() time.Duration
	GetSessionCookieName() string
	GetSessionStore() string
}

type Session struct {
	IdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"30m"`
	CookieName  string        `env:"SESSION_COOKIE_NAME" envDefault:"session_id"`
	Store       string        `env:"SESSION_STORE" envDefault:"memory"`
}

var _ SessionConfig = Session{}

func (s Session) GetSessionIdleTimeout() time.Duration {
	return s.IdleTimeout
}

func (s Session) GetSessionCookieName() string {
	return s.CookieName
}

func (s Session) GetSessionStore() string {
	return s.Store
}

func (s *Session) validate() error {
	if s.IdleTimeout <= 0 {
		return invalid("SESSION_IDLE_TIMEOUT must be greater than zero")
	}
	if s.CookieName == "" {
		return invalid("SESSION_COOKIE_NAME is required")
	}
	if s.Store != SessionStoreMemory && s.Store != SessionStoreDatabase {
		return invalid("SESSION_STORE %q is not supported", s.Store)
	}
	return nil
}
