package sqlite

import "errors"

// Sentinel errors for SQLite operations.
var (
	// ErrConnectionFailed indicates the database could not be opened,
	// verified or migrated.
	ErrConnectionFailed = errors.New("sqlite: connection failed")

	// ErrEmptyPath indicates the target carried no file path.
	ErrEmptyPath = errors.New("sqlite: database path is empty")
)
