package config

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type EnvVars struct {
	Port          string `env:"PORT" envDefault:"8080"`
	AppName       string `env:"APP_NAME" envDefault:"Session Auth"`
	Env           string `env:"ENV" envDefault:"DEV"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile       string `env:"LOG_FILE"`
	AdminUsername string `env:"ADMIN_USERNAME"`
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
	BcryptCost    int    `env:"BCRYPT_COST" envDefault:"10"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.Port
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return "DEV"
	}
	return e.Env
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

func (e EnvVars) GetLogFile() string {
	return e.LogFile
}

func (e EnvVars) GetAdminUsername() string {
	return e.AdminUsername
}

func (e EnvVars) GetAdminEmail() string {
	return e.AdminEmail
}

func (e EnvVars) GetAdminPassword() string {
	return e.AdminPassword
}

func (e EnvVars) GetBcryptCost() int {
	return e.BcryptCost
}

func (e *EnvVars) validate() error {
	if e.BcryptCost < bcrypt.MinCost || e.BcryptCost > bcrypt.MaxCost {
		return invalid("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if (e.AdminUsername == "") != (strings.TrimSpace(e.AdminPassword) == "") {
		return invalid("ADMIN_USERNAME and ADMIN_PASSWORD must be set together")
	}
	return nil
}
