package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-session-auth/internal/errors"
)

type Config interface {
	EnvConfig
	CorsConfig
	JWTConfig
	EncryptionConfig
	SessionConfig
	DatabaseConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetLogFile() string
	GetAdminUsername() string
	GetAdminEmail() string
	GetAdminPassword() string
	GetBcryptCost() int
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	JWT
	Encryption
	Session
	Database
}

type validator interface {
	validate() error
}

// Load reads an optional .env file, parses the process environment and
// validates every section. Any error is a startup failure.
func Load() (Config, error) {
	// Missing .env is fine, real environment variables take over
	_ = godotenv.Load()
	return FromEnvironment()
}

// FromEnvironment parses and validates the current process environment.
func FromEnvironment() (Config, error) {
	var c mainConfig
	if err := env.Parse(&c); err != nil {
		return nil, errors.Wrapf(errors.ErrConfiguration, "parse env: %s", err.Error())
	}

	for _, section := range []validator{&c.EnvVars, &c.JWT, &c.Encryption, &c.Session, &c.Database} {
		if err := section.validate(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func invalid(format string, args ...any) error {
	return errors.Wrapf(errors.ErrConfiguration, format, args...)
}
