// Package storage is the SQL backing for users, the refresh token ledger and
// sessions. Queries are written with ? placeholders and rebound per driver.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	"github.com/jmoiron/sqlx"
	"github.com/jrsteele09/go-session-auth/internal/config"
	_ "github.com/lib/pq" // registers "postgres"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // registers "sqlite"
)

func init() {
	sqlx.BindDriver(config.DriverSQLite, sqlx.QUESTION)
}

const defaultQueryTimeout = 5 * time.Second

// DB wraps the connection pool with the schema dialect and per query timeout.
type DB struct {
	*sqlx.DB
	schema       string // migrations sub directory, also the goose dialect family
	queryTimeout time.Duration
}

// Open connects using the configured driver, applies the embedded schema and
// returns the ready pool.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	driver := cfg.GetDBDriver()
	dsn := cfg.GetDBDSN()
	if driver == config.DriverSQLite {
		if err := ensureSQLiteDir(dsn); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
		dsn = sqliteDSN(dsn)
	}

	sqlxDB, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	maxConns := cfg.GetDBMaxConns()
	if driver == config.DriverSQLite {
		// A single writer keeps rotation transactions from tripping SQLITE_BUSY
		maxConns = 1
	}
	sqlxDB.SetMaxOpenConns(maxConns)

	db := NewFromDB(sqlxDB, cfg.GetDBQueryTimeout())
	if err := db.Migrate(ctx); err != nil {
		_ = sqlxDB.Close()
		return nil, err
	}

	log.Info().Str("driver", driver).Msg("database ready")
	return db, nil
}

// NewFromDB wraps an existing pool. The schema dialect follows the driver name.
func NewFromDB(sqlxDB *sqlx.DB, queryTimeout time.Duration) *DB {
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	schema := "postgres"
	if sqlxDB.DriverName() == config.DriverSQLite {
		schema = "sqlite"
	}
	return &DB{DB: sqlxDB, schema: schema, queryTimeout: queryTimeout}
}

// Ping checks the connection within the query timeout.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()
	return db.PingContext(ctx)
}

func (db *DB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, db.queryTimeout)
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// ensureSQLiteDir creates the parent directory of a plain file DSN
func ensureSQLiteDir(dsn string) error {
	path, _, _ := strings.Cut(dsn, "?")
	if path == "" || path == ":memory:" || strings.HasPrefix(path, "file:") {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// nowFunc is the clock used for created_at and session expiry
var nowFunc = time.Now

func nowUTC() time.Time {
	return nowFunc().UTC()
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func rollback(tx *sqlx.Tx) {
	if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
		log.Err(err).Msg("rollback failed")
	}
}
