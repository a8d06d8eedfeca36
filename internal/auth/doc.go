// Package auth provides authentication and authorisation for the docbind
// admin API.
//
// It implements a 2-tier role model (viewer → operator) with:
//   - Argon2id password hashing (OWASP 2025 recommendation)
//   - Stateless HS256 JWT access tokens carrying the caller's role
//   - A fixed account list loaded from configuration
//   - Static role-permission mapping (compile-time, no lookup)
//
// Viewers may read connection state and subscribe to state events.
// Operators may also connect and disconnect the database.
package auth
