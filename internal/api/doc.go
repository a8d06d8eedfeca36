// Package api implements the admin HTTP API and WebSocket server for docbind.
//
// This package provides:
//   - REST endpoints reporting database state and the model/plugin registry
//   - Connect and disconnect endpoints driving the connection lifecycle
//   - WebSocket hub broadcasting connection state transitions
//   - Optional JWT bearer authentication with viewer/operator roles
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// # Endpoints
//
//	GET  /api/v1/health               service liveness (no auth)
//	POST /api/v1/auth/login           username/password for a token (auth enabled only)
//	GET  /api/v1/database             state, target, models and plugins (viewer)
//	GET  /api/v1/database/health      store ping; 503 when not connected (viewer)
//	POST /api/v1/database/connect     connect, joining an attempt in flight (operator)
//	POST /api/v1/database/disconnect  disconnect (operator)
//	GET  /api/v1/ws                   WebSocket; subscribe to "database.state_changed" (viewer)
//
// # Security
//
// With security.jwt.secret unset the API is unauthenticated and should only
// listen on loopback (the default host is 127.0.0.1). With it set, every
// route except health and login needs a bearer token, issued by login
// against the accounts in security.users.
package api
