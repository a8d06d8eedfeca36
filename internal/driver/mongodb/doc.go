// Package mongodb implements database.Driver on the official MongoDB Go
// driver (go.mongodb.org/mongo-driver/v2).
//
// Connect dials the target URI, verifies it with a ping, and returns a
// *Client bound to the configured default database. The Database that
// called Connect owns the Client and closes it on Disconnect.
//
// Usage:
//
//	db, err := database.New(database.Config{
//	    URL: "localhost:27017",
//	    Options: database.ConnectOptions{Database: "app"},
//	}, mongodb.NewDriver())
//
//	h, err := db.Connect(ctx)
//	users := h.(*mongodb.Client).Collection("users")
package mongodb
