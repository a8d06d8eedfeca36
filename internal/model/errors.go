package model

import "errors"

// Sentinel errors for model operations.
var (
	// ErrNotBound is returned when a model is used before a Database has
	// been bound to it.
	ErrNotBound = errors.New("model: not bound to a database")

	// ErrNotConnected is returned when the bound Database has no live
	// connection.
	ErrNotConnected = errors.New("model: database not connected")

	// ErrUnsupportedHandle is returned when the live handle cannot serve
	// the requested operation.
	ErrUnsupportedHandle = errors.New("model: connection handle does not support operation")

	// ErrPluginFailed wraps the error of a plugin that could not be applied.
	ErrPluginFailed = errors.New("model: plugin failed")

	// ErrInvalidPlugin is returned by ParsePlugin for an unrecognised spec.
	ErrInvalidPlugin = errors.New("model: invalid plugin spec")
)
