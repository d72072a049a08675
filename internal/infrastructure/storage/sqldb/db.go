// Package sqldb provides the relational database boundary of the admin:
// connection pools, SQL dialects, per-request sessions and the audit log.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver, registers "mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver, registers "pgx"
	_ "modernc.org/sqlite"             // Pure-Go SQLite driver, registers "sqlite"

	"adminnext/pkg/logger"
)

// Config holds connection pool configuration.
type Config struct {
	Dialect         string // postgres, sqlite, mysql
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConfig returns sensible defaults for production.
func DefaultConfig(dialect, dsn string) Config {
	return Config{
		Dialect:         dialect,
		DSN:             dsn,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
	}
}

// DB wraps *sql.DB together with the dialect used to talk to it.
type DB struct {
	*sql.DB
	dialect Dialect
}

// New wraps an already opened handle. Tests use it with sqlmock.
func New(db *sql.DB, dialect Dialect) *DB {
	return &DB{DB: db, dialect: dialect}
}

// Dialect returns the SQL dialect of the database.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Open creates a connection pool with the given configuration and verifies it.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	dialect, err := DialectByName(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(dialect.DriverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.Name(), err)
	}

	if dialect.Name() == DialectSQLite {
		// SQLite performs best with a single write connection.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect.Name(), err)
	}

	// modernc.org/sqlite requires SQL statements, not DSN params.
	for _, p := range dialect.Pragmas() {
		if _, err := sqlDB.ExecContext(ctx, p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	logger.Info(ctx, "database pool created",
		"dialect", dialect.Name(),
		"max_open_conns", sqlDB.Stats().MaxOpenConnections,
	)

	return New(sqlDB, dialect), nil
}

// Health checks database connectivity.
func (db *DB) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// NewSession starts a unit of work bound to this database.
func (db *DB) NewSession() *Session {
	return &Session{db: db}
}
