package mongodb

import "errors"

// Sentinel errors for MongoDB operations.
var (
	// ErrConnectionFailed indicates the client could not be created or the
	// server did not answer the initial ping.
	ErrConnectionFailed = errors.New("mongodb: connection failed")

	// ErrIndexFailed indicates index creation failed.
	ErrIndexFailed = errors.New("mongodb: index creation failed")
)
