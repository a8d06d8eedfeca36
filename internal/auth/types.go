package auth

import (
	"errors"
	"regexp"
	"slices"
)

// Sentinel errors for authentication.
var (
	// ErrTokenInvalid is returned for malformed, expired or wrongly signed tokens.
	ErrTokenInvalid = errors.New("auth: invalid token")

	// ErrInvalidCredentials is returned when a username or password does not match.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrInvalidHash is returned for a password hash that is not Argon2id PHC.
	ErrInvalidHash = errors.New("auth: invalid password hash")
)

// usernamePattern defines the valid format for usernames:
// alphanumeric, dots, hyphens, underscores, 1-64 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// IsValidUsername checks if a username meets format requirements.
func IsValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// Role represents an authorisation tier of the admin API.
type Role string

const (
	// RoleViewer can read connection state and subscribe to state events.
	RoleViewer Role = "viewer"

	// RoleOperator can additionally connect and disconnect the database.
	RoleOperator Role = "operator"
)

// ValidRoles is the set of roles an account may hold.
var ValidRoles = []Role{RoleViewer, RoleOperator}

// IsValidRole returns true if r is a known role.
func IsValidRole(r Role) bool {
	return slices.Contains(ValidRoles, r)
}

// Account is an admin API login loaded from configuration.
type Account struct {
	Username     string
	PasswordHash string
	Role         Role
}
