package sqlite

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/nerrad567/docbind/internal/database"
	"github.com/nerrad567/docbind/migrations"
)

// Scheme is the target scheme handled by this driver. Use it as
// database.Config.Scheme.
const Scheme = "sqlite"

// Ensure the driver and handle implement the database interfaces at compile time.
var (
	_ database.Driver = (*Driver)(nil)
	_ database.Handle = (*DB)(nil)
	_ database.Pinger = (*DB)(nil)
)

// Options configures the SQLite driver.
type Options struct {
	// WALMode enables Write-Ahead Logging.
	WALMode bool

	// BusyTimeout is the lock wait in seconds.
	BusyTimeout int

	// Migrations overrides the embedded document store schema.
	Migrations fs.FS
}

// Driver opens the SQLite document store.
type Driver struct {
	opts   Options
	logger *slog.Logger
}

// Option configures the Driver.
type Option func(*Driver)

// WithLogger sets the logger for the driver.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = logger
	}
}

// NewDriver creates a SQLite driver. Without Options.Migrations the
// embedded schema from the migrations package is applied on connect.
func NewDriver(opts Options, options ...Option) *Driver {
	if opts.Migrations == nil {
		opts.Migrations = migrations.FS
	}
	d := &Driver{opts: opts, logger: slog.Default()}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// Connect opens the database file named by target and applies pending
// migrations. Credentials in the target are ignored: SQLite has none.
//
// Returns:
//   - database.Handle: A *DB
//   - error: Wraps ErrConnectionFailed
func (d *Driver) Connect(ctx context.Context, target string, opts database.ConnectOptions) (database.Handle, error) {
	p := pathFromTarget(target)
	if p == "" {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, ErrEmptyPath)
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	db, err := Open(ctx, Config{
		Path:        p,
		WALMode:     d.opts.WALMode,
		BusyTimeout: d.opts.BusyTimeout,
		Migrations:  d.opts.Migrations,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close(ctx) //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("%w: running migrations: %w", ErrConnectionFailed, err)
	}

	d.logger.Debug("sqlite document store ready", "path", p)
	return db, nil
}

// pathFromTarget strips the scheme and any userinfo from target.
func pathFromTarget(target string) string {
	p := strings.TrimPrefix(target, Scheme+"://")
	if i := strings.Index(p, "@"); i >= 0 && !strings.Contains(p[:i], "/") {
		p = p[i+1:]
	}
	return p
}
