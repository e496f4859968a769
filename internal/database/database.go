package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"barbershop/internal/config"

	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrSyncTaskMissing = errors.New("sync task not found")
)

// DB wraps *sql.DB and hides placeholder differences between sqlite and postgres.
// Queries are written with ? placeholders.
type DB struct {
	*sql.DB
	driver string
	path   string
	logger *zerolog.Logger
}

// NewDB opens a sqlite database at path and creates the schema.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases shared and avoids SQLITE_BUSY on writes.
	sqlDB.SetMaxOpenConns(1)

	return initDB(sqlDB, DriverSQLite, path, logger)
}

// NewPostgresDB opens a postgres database through lib/pq and creates the schema.
func NewPostgresDB(cfg config.PostgresConfig, logger *zerolog.Logger) (*DB, error) {
	sqlDB, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxConnections > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxConnections)
	}

	return initDB(sqlDB, DriverPostgres, "", logger)
}

// Open picks the driver configured in cfg.
func Open(cfg config.DatabaseConfig, logger *zerolog.Logger) (*DB, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return NewPostgresDB(cfg.Postgres, logger)
	case DriverSQLite, "":
		return NewDB(cfg.Path, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", cfg.Driver)
	}
}

func initDB(sqlDB *sql.DB, driver, path string, logger *zerolog.Logger) (*DB, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{DB: sqlDB, driver: driver, path: path, logger: logger}
	if err := db.createTables(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("driver", driver).Str("path", path).Msg("database initialized")
	return db, nil
}

// Driver reports the active dialect.
func (db *DB) Driver() string {
	return db.driver
}

// Path is the sqlite file path; empty for postgres.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) createTables() error {
	timestamp, serial := "DATETIME", "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.driver == DriverPostgres {
		timestamp, serial = "TIMESTAMPTZ", "BIGSERIAL PRIMARY KEY"
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
            id TEXT PRIMARY KEY,
            user_id TEXT,
            name TEXT NOT NULL,
            phone TEXT NOT NULL,
            email TEXT NOT NULL,
            service TEXT NOT NULL,
            preferred_date TEXT NOT NULL,
            preferred_time TEXT NOT NULL,
            notes TEXT,
            status TEXT NOT NULL DEFAULT 'pending'
                CHECK (status IN ('pending', 'confirmed', 'completed', 'cancelled')),
            payment_status TEXT,
            payment_amount BIGINT,
            stripe_session_id TEXT,
            created_at ` + timestamp + ` NOT NULL,
            updated_at ` + timestamp + ` NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS user_roles (
            user_id TEXT NOT NULL,
            role TEXT NOT NULL,
            created_at ` + timestamp + ` NOT NULL,
            PRIMARY KEY (user_id, role)
        )`,
		`CREATE TABLE IF NOT EXISTS sync_queue (
            id ` + serial + `,
            task_type TEXT NOT NULL,
            booking_id TEXT NOT NULL,
            payload TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            created_at ` + timestamp + ` NOT NULL,
            processed_at ` + timestamp + `,
            next_retry_at ` + timestamp + `
        )`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_created_at ON bookings(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status, next_retry_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders as $1..$n for postgres.
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *DB) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.ExecContext(ctx, db.rebind(query), args...)
}

func (db *DB) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.QueryContext(ctx, db.rebind(query), args...)
}

func (db *DB) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return db.QueryRowContext(ctx, db.rebind(query), args...)
}
