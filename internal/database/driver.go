package database

import (
	"context"
	"time"
)

// Driver establishes connections to a document store.
//
// Connect is called at most once per connection attempt. The target is the
// fully composed connection URI, including credentials when configured.
// Drivers report their own failure reason; the Database wraps it with
// ErrConnectionFailed.
type Driver interface {
	Connect(ctx context.Context, target string, opts ConnectOptions) (Handle, error)
}

// DriverFunc adapts a function to the Driver interface.
type DriverFunc func(ctx context.Context, target string, opts ConnectOptions) (Handle, error)

// Connect calls f(ctx, target, opts).
func (f DriverFunc) Connect(ctx context.Context, target string, opts ConnectOptions) (Handle, error) {
	return f(ctx, target, opts)
}

// Handle is the live link to the store returned by a Driver.
//
// The Database owns the handle from a successful Connect until Disconnect,
// and calls Close exactly once per successful Connect.
type Handle interface {
	Close(ctx context.Context) error
}

// Pinger is implemented by handles that can verify the link is alive.
// HealthCheck uses it when available.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SchemaReporter is implemented by handles that migrate their own schema.
type SchemaReporter interface {
	SchemaStatus(ctx context.Context) (SchemaStatus, error)
}

// SchemaStatus lists migrations by version_name, in version order.
type SchemaStatus struct {
	Applied []string `json:"applied"`
	Pending []string `json:"pending"`
}

// ConnectOptions are passed through to the Driver on every attempt.
type ConnectOptions struct {
	// Database is the default database name on the store.
	Database string

	// AppName identifies this process to the store, where supported.
	AppName string

	// Timeout bounds a single connection attempt. Zero lets the driver
	// choose.
	Timeout time.Duration
}
