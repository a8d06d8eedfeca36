package mongodb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/nerrad567/docbind/internal/database"
)

// Connection defaults.
const (
	// defaultConnectTimeout bounds dialing and server selection when the
	// caller sets no timeout.
	defaultConnectTimeout = 10 * time.Second

	// defaultDisconnectTimeout bounds the graceful disconnect.
	defaultDisconnectTimeout = 5 * time.Second

	// defaultDatabase is used when ConnectOptions.Database is empty.
	defaultDatabase = "docbind"
)

// Ensure Driver implements database.Driver at compile time.
var _ database.Driver = (*Driver)(nil)

// Driver connects to MongoDB.
type Driver struct {
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

// NewDriver creates a MongoDB driver.
func NewDriver(opts ...Option) *Driver {
	d := &Driver{logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Connect dials target and pings the primary.
//
// It performs the following setup:
//  1. Builds client options from the URI (credentials come from userinfo)
//  2. Applies the app name and the connect/server selection timeout
//  3. Creates the client and verifies it with a ping
//  4. Binds the default database
//
// Returns:
//   - database.Handle: A *Client
//   - error: Wraps ErrConnectionFailed with the driver's reason
func (d *Driver) Connect(ctx context.Context, target string, opts database.ConnectOptions) (database.Handle, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	clientOpts := options.Client().
		ApplyURI(target).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)
	if opts.AppName != "" {
		clientOpts.SetAppName(opts.AppName)
	}

	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		discCtx, discCancel := context.WithTimeout(context.WithoutCancel(ctx), defaultDisconnectTimeout)
		defer discCancel()
		_ = client.Disconnect(discCtx) //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}

	name := opts.Database
	if name == "" {
		name = defaultDatabase
	}

	d.logger.Debug("mongodb client ready", "database", name)

	return &Client{
		client: client,
		db:     client.Database(name),
	}, nil
}
