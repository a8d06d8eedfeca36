package auth

import "fmt"

// dummyHash is verified against when the username is unknown, so a failed
// login costs the same whether or not the account exists.
//
//nolint:gosec // G101: not a credential, the hash of a random string
const dummyHash = "$argon2id$v=19$m=65536,t=3,p=1$c29tZXNhbHRzb21lc2FsdA$yXv3vW0kGkqjI9pLk6oJ0l2k8q6mJpP0w2yQ6VhF0Zs"

// Authenticator checks usernames and passwords against a fixed account list.
//
// Thread Safety:
//   - Safe for concurrent use; the account list is never modified.
type Authenticator struct {
	accounts map[string]Account
}

// NewAuthenticator validates accounts and builds an Authenticator.
//
// Returns:
//   - *Authenticator: Ready for Authenticate
//   - error: If a username, role or hash is invalid, or a username repeats
func NewAuthenticator(accounts []Account) (*Authenticator, error) {
	a := &Authenticator{accounts: make(map[string]Account, len(accounts))}
	for _, acc := range accounts {
		if !IsValidUsername(acc.Username) {
			return nil, fmt.Errorf("invalid username %q", acc.Username)
		}
		if !IsValidRole(acc.Role) {
			return nil, fmt.Errorf("account %s: invalid role %q", acc.Username, acc.Role)
		}
		if _, err := parsePHC(acc.PasswordHash); err != nil {
			return nil, fmt.Errorf("account %s: %w", acc.Username, err)
		}
		if _, dup := a.accounts[acc.Username]; dup {
			return nil, fmt.Errorf("duplicate account %q", acc.Username)
		}
		a.accounts[acc.Username] = acc
	}
	return a, nil
}

// Len returns the number of accounts.
func (a *Authenticator) Len() int {
	return len(a.accounts)
}

// Authenticate returns the account matching username and password.
//
// Returns:
//   - Account: The matched account
//   - error: ErrInvalidCredentials for an unknown user or wrong password
func (a *Authenticator) Authenticate(username, password string) (Account, error) {
	acc, known := a.accounts[username]
	hash := acc.PasswordHash
	if !known {
		hash = dummyHash
	}

	ok, err := VerifyPassword(password, hash)
	if err != nil {
		return Account{}, err
	}
	if !ok || !known {
		return Account{}, ErrInvalidCredentials
	}
	return acc, nil
}
