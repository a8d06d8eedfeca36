package database

import "errors"

// Domain-specific errors for database lifecycle and registration.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrConnectionFailed is returned when the driver fails to establish a
	// connection. The driver's reason is wrapped alongside it.
	ErrConnectionFailed = errors.New("database: connection failed")

	// ErrCloseFailed is returned when closing the connection handle fails.
	// The handle is released regardless.
	ErrCloseFailed = errors.New("database: close failed")

	// ErrNotConnected is returned by HealthCheck when no connection is live.
	ErrNotConnected = errors.New("database: not connected")

	// ErrRegistrationFailed is returned when a model's Use hook fails.
	// The model stays registered.
	ErrRegistrationFailed = errors.New("database: model registration failed")

	// ErrNilModel is returned when a nil model is registered.
	ErrNilModel = errors.New("database: model cannot be nil")

	// ErrNilPlugin is returned when a nil plugin is registered.
	ErrNilPlugin = errors.New("database: plugin cannot be nil")

	// ErrNoDriver is returned by New when no driver is given.
	ErrNoDriver = errors.New("database: no driver configured")
)
