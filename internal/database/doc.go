// Package database manages the single logical connection to a document
// store and propagates it, with an ordered set of plugins, to registered
// models.
//
// This package manages:
//   - The connection state machine (DISCONNECTED, CONNECTING, CONNECTED)
//   - Sharing one in-flight connection attempt between concurrent callers
//   - Ordered model and plugin registration, with push-only propagation
//   - State change notification for observers (status publishing, metrics)
//
// The store itself is reached through a Driver; see internal/driver for
// the MongoDB and SQLite implementations. Handles returned by a driver
// are opaque to this package.
//
// Usage:
//
//	db, err := database.New(database.Config{
//	    URL:      "db.local:27017",
//	    Username: cfg.Database.Username,
//	    Password: cfg.Database.Password,
//	}, mongodb.NewDriver(), database.WithLogger(log.Logger))
//	if err != nil {
//	    return err
//	}
//
//	if err := db.RegisterModel(users); err != nil {
//	    return err
//	}
//
//	if _, err := db.Connect(ctx); err != nil {
//	    return err // wraps ErrConnectionFailed
//	}
//	defer db.Disconnect(ctx)
//
// Plugin propagation:
//
// A model receives the plugins registered before it, at the moment it is
// registered. Plugins added later are not applied to models that are
// already registered.
package database
