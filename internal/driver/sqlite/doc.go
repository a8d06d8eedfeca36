// Package sqlite implements database.Driver as an embedded document store
// on SQLite (github.com/mattn/go-sqlite3).
//
// Documents are JSON bodies in a single documents table keyed by
// (collection, id). It is meant for development, tests and single-node
// deployments where running a MongoDB server is not worth it.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Schema migrations (additive-only, embedded in the binary)
//   - Expression indexes on JSON document fields
//
// Security Considerations:
//   - All queries use parameterised statements
//   - Index DDL only accepts names matching driver.ValidateName
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.New(database.Config{
//	    Scheme: sqlite.Scheme,
//	    URL:    "./data/docbind.db",
//	}, sqlite.NewDriver(sqlite.Options{WALMode: true, BusyTimeout: 5}))
//
// Migrations run forward only, in version order, when the driver connects.
// Applied and pending versions are reported through SchemaStatus, which
// surfaces in the API's database health detail. New columns must be
// nullable or defaulted, and nothing is dropped or renamed.
package sqlite
