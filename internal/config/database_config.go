package config

import "time"

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
)

type DatabaseConfig interface {
	GetDBDriver() string
	GetDBDSN() string
	GetDBMaxConns() int
	GetDBQueryTimeout() time.Duration
}

type Database struct {
	Driver       string        `env:"DB_DRIVER" envDefault:"sqlite"`
	DSN          string        `env:"DB_DSN" envDefault:"./data/auth.db"`
	MaxConns     int           `env:"DB_MAX_CONNS" envDefault:"5"`
	QueryTimeout time.Duration `env:"DB_QUERY_TIMEOUT" envDefault:"5s"`
}

var _ DatabaseConfig = Database{}

func (d Database) GetDBDriver() string {
	return d.Driver
}

func (d Database) GetDBDSN() string {
	return d.DSN
}

func (d Database) GetDBMaxConns() int {
	return d.MaxConns
}

func (d Database) GetDBQueryTimeout() time.Duration {
	return d.QueryTimeout
}

func (d *Database) validate() error {
	switch d.Driver {
	case DriverSQLite, DriverPostgres, DriverPgx:
	default:
		return invalid("DB_DRIVER %q is not supported", d.Driver)
	}
	if d.DSN == "" {
		return invalid("DB_DSN is required")
	}
	if d.MaxConns <= 0 {
		return invalid("DB_MAX_CONNS must be greater than zero")
	}
	if d.QueryTimeout <= 0 {
		return invalid("DB_QUERY_TIMEOUT must be greater than zero")
	}
	return nil
}
