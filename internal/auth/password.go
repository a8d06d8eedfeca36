package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id cost used for new hashes. Stored hashes carry their own cost,
// so raising these does not invalidate existing accounts.
const (
	hashTime    = 3
	hashMemory  = 64 * 1024 // KiB
	hashThreads = 1
	hashKeyLen  = 32
	hashSaltLen = 16
)

var b64 = base64.RawStdEncoding

// phc is a decoded argon2id hash in PHC string form:
// $argon2id$v=19$m=<KiB>,t=<iterations>,p=<threads>$<salt>$<key>.
type phc struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func (p phc) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.time, p.threads, b64.EncodeToString(p.salt), b64.EncodeToString(p.key))
}

func (p phc) derive(password string, keyLen int) []byte {
	return argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.threads, uint32(keyLen)) //nolint:gosec // key length is small
}

// HashPassword returns the argon2id PHC string for password, as stored in
// security.users[].password_hash.
func HashPassword(password string) (string, error) {
	p := phc{memory: hashMemory, time: hashTime, threads: hashThreads, salt: make([]byte, hashSaltLen)}
	if _, err := rand.Read(p.salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	p.key = p.derive(password, hashKeyLen)
	return p.String(), nil
}

// VerifyPassword reports whether password matches encoded. A malformed or
// non-argon2id hash is an ErrInvalidHash error, not a mismatch.
func VerifyPassword(password, encoded string) (bool, error) {
	p, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(p.key, p.derive(password, len(p.key))) == 1, nil
}

func parsePHC(encoded string) (phc, error) {
	var p phc
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" {
		return p, fmt.Errorf("%w: want $argon2id$v=..$m=..,t=..,p=..$salt$key", ErrInvalidHash)
	}
	if fields[1] != "argon2id" {
		return p, fmt.Errorf("%w: algorithm %q", ErrInvalidHash, fields[1])
	}
	if fields[2] != "v="+strconv.Itoa(argon2.Version) {
		return p, fmt.Errorf("%w: version %q", ErrInvalidHash, fields[2])
	}
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return p, fmt.Errorf("%w: cost %q: %w", ErrInvalidHash, fields[3], err)
	}
	if p.time == 0 || p.threads == 0 {
		return p, fmt.Errorf("%w: zero cost in %q", ErrInvalidHash, fields[3])
	}

	var err error
	if p.salt, err = b64.DecodeString(fields[4]); err != nil {
		return p, fmt.Errorf("%w: salt: %w", ErrInvalidHash, err)
	}
	if p.key, err = b64.DecodeString(fields[5]); err != nil {
		return p, fmt.Errorf("%w: key: %w", ErrInvalidHash, err)
	}
	if len(p.key) == 0 {
		return p, fmt.Errorf("%w: empty key", ErrInvalidHash)
	}
	return p, nil
}
