package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// defaultName is used when no WithName option is given.
const defaultName = "default"

// Config holds the construction parameters of a Database.
type Config struct {
	// URL is the store address, e.g. "localhost:27017" or a full URI.
	// Default: "localhost"
	URL string

	// Scheme is prepended to URL when it has none. Default: "mongodb"
	Scheme string

	// Username and Password are embedded in the connection URI userinfo
	// when Username is set. They are otherwise passed through untouched.
	Username string
	Password string

	// Options are handed to the driver on every connection attempt.
	Options ConnectOptions
}

// Database is the single entry point combining the connection lifecycle
// (Manager) and the model/plugin Registry.
//
// Each Database owns its own registry, so several instances in one
// process never share models or plugins.
//
// Usage:
//
//	db, err := database.New(database.Config{URL: "localhost"}, mongodb.NewDriver())
//	if err != nil {
//	    return err
//	}
//	db.UsePlugins(timestamps, audit)
//	db.RegisterModels(users, orders)
//
//	if _, err := db.Connect(ctx); err != nil {
//	    return err
//	}
//	defer db.Disconnect(ctx)
type Database struct {
	*Manager
	*Registry

	id     string
	name   string
	url    string
	target string

	logger    *slog.Logger
	observers []Observer
}

// Option configures a Database.
type Option func(*Database)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Database) {
		d.logger = l
	}
}

// WithName sets the name reported in logs and state transitions.
func WithName(name string) Option {
	return func(d *Database) {
		d.name = name
	}
}

// WithObserver adds an observer of connection state changes.
// Observers are notified in the order they are added.
func WithObserver(o Observer) Option {
	return func(d *Database) {
		d.observers = append(d.observers, o)
	}
}

// New creates a disconnected Database. No connection is attempted until
// Connect is called.
//
// Returns:
//   - *Database: Ready for registration and Connect
//   - error: ErrNoDriver, or if the connection URI cannot be composed
func New(cfg Config, driver Driver, opts ...Option) (*Database, error) {
	if driver == nil {
		return nil, ErrNoDriver
	}

	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}

	target, err := BuildTarget(cfg.Scheme, cfg.URL, cfg.Username, cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("composing connection target: %w", err)
	}

	d := &Database{
		id:     uuid.NewString(),
		name:   defaultName,
		url:    cfg.URL,
		target: target,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.logger = d.logger.With("component", "database", "database", d.name)
	d.Manager = newManager(driver, target, cfg.Options, d.name, d.id, d.logger, d.observers)
	d.Registry = newRegistry(d, d.logger)

	return d, nil
}

// ID returns the unique identifier of this instance.
func (d *Database) ID() string { return d.id }

// Name returns the configured name.
func (d *Database) Name() string { return d.name }

// URL returns the store address as configured.
func (d *Database) URL() string { return d.url }

// Target returns the composed connection URI with the password masked.
func (d *Database) Target() string { return redact(d.target) }

// Logger returns the database's logger.
func (d *Database) Logger() *slog.Logger { return d.logger }

// HealthCheck verifies the connection is live.
//
// It returns ErrNotConnected unless the state is CONNECTED. If the handle
// implements Pinger, the store is pinged as well.
func (d *Database) HealthCheck(ctx context.Context) error {
	h := d.Connection()
	if h == nil {
		return ErrNotConnected
	}

	p, ok := h.(Pinger)
	if !ok {
		return nil
	}
	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Schema returns the migration state of the connected store. ok is false
// when the handle does not report one.
func (d *Database) Schema(ctx context.Context) (status SchemaStatus, ok bool, err error) {
	h := d.Connection()
	if h == nil {
		return SchemaStatus{}, false, ErrNotConnected
	}
	r, ok := h.(SchemaReporter)
	if !ok {
		return SchemaStatus{}, false, nil
	}
	status, err = r.SchemaStatus(ctx)
	if err != nil {
		return SchemaStatus{}, true, fmt.Errorf("reading schema status: %w", err)
	}
	return status, true, nil
}
