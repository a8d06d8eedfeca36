package database

import (
	"context"
	"time"
)

// Transition describes one state change of a Database connection.
type Transition struct {
	// Database is the configured name of the Database.
	Database string

	// ID is the unique instance identifier of the Database.
	ID string

	From State
	To   State

	// Attempt identifies the connection attempt that caused the change.
	// Empty for transitions caused by Disconnect.
	Attempt string

	// Elapsed is the duration of the attempt for CONNECTING -> * changes.
	Elapsed time.Duration

	// Err is the driver failure for CONNECTING -> DISCONNECTED.
	Err error

	At time.Time
}

// Observer is notified of connection state changes.
//
// Observers run synchronously on the goroutine that caused the change, after
// internal locks are released, in registration order. They should not block.
type Observer interface {
	OnStateChange(ctx context.Context, t Transition)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, t Transition)

// OnStateChange calls f(ctx, t).
func (f ObserverFunc) OnStateChange(ctx context.Context, t Transition) {
	f(ctx, t)
}
