// Package model provides Base, a database.Model backed by a single
// collection, and the index plugins that configure it.
//
// A Base is registered with a Database like any other model. At
// registration it receives the plugins registered so far; those that
// implement Applier act on it immediately, typically by recording index
// specs. Once the Database is connected, EnsureIndexes creates them
// through whichever driver holds the connection.
//
// Usage:
//
//	users := model.New("users", model.WithCollection("app_users"))
//	db.UsePlugin(model.IndexPlugin{Field: "email", Unique: true})
//	db.RegisterModel(users)
//
//	if _, err := db.Connect(ctx); err != nil {
//	    return err
//	}
//	if err := users.EnsureIndexes(ctx); err != nil {
//	    return err
//	}
package model
