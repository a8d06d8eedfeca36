package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
)

const (
	dirMode  = 0o750
	fileMode = 0o600

	openPingTimeout = 5 * time.Second
	connMaxIdleTime = 30 * time.Minute
)

// DB is the handle returned by Driver.Connect: one SQLite file holding the
// documents table. The embedded *sql.DB is available for queries.
type DB struct {
	*sql.DB
	migrations fs.FS
}

// Config describes the database file to open.
type Config struct {
	// Path is the database file. Missing parent directories are created.
	Path string

	// WALMode enables write-ahead logging with synchronous=NORMAL.
	WALMode bool

	// BusyTimeout is the lock wait in seconds.
	BusyTimeout int

	// Migrations holds forward migrations at its root. Nil means none.
	Migrations fs.FS
}

// dsn builds the go-sqlite3 connection string for cfg.
func (cfg Config) dsn() string {
	q := url.Values{}
	q.Set("_busy_timeout", fmt.Sprint(cfg.BusyTimeout*int(time.Second/time.Millisecond)))
	q.Set("_foreign_keys", "on")
	if cfg.WALMode {
		q.Set("_journal_mode", "WAL")
		q.Set("_synchronous", "NORMAL")
	}
	return "file:" + cfg.Path + "?" + q.Encode()
}

// Open opens (creating if needed) the file at cfg.Path and checks it
// answers. Migrations are not applied; call Migrate.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, ErrEmptyPath
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirMode); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One writer at a time; a larger pool only adds SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, openPingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := os.Chmod(cfg.Path, fileMode); err != nil && !os.IsNotExist(err) {
		sqlDB.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("restricting database file: %w", err)
	}

	return &DB{DB: sqlDB, migrations: cfg.Migrations}, nil
}

// Close closes the file. It implements database.Handle.
func (db *DB) Close(_ context.Context) error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Ping runs a trivial query. It implements database.Pinger.
func (db *DB) Ping(ctx context.Context) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("sqlite ping: %w", err)
	}
	return nil
}
