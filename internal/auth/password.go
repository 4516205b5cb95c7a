package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. The hash string is self-describing, so these can
// change without invalidating stored hashes.
const (
	argonMemory      = 64 * 1024
	argonIterations  = 2
	argonParallelism = 1
	argonKeyLength   = 32
	argonSaltLength  = 16
)

// HashPassword derives a salted argon2id hash in PHC string format.
// Every call draws a fresh salt, so two hashes of the same password
// never compare equal as strings yet both verify.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("%w: generate salt: %v", ErrHashing, err)
	}
	hash := argon2.IDKey([]byte(password), salt, argonIterations, argonMemory, argonParallelism, argonKeyLength)

	return fmt.Sprintf(
		"$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		argonMemory,
		argonIterations,
		argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyPassword re-derives the hash using the salt and parameters
// embedded in stored and compares in constant time. A malformed stored
// value fails with ErrHashFormat; callers must treat that identically
// to a plain mismatch when talking to the outside world.
func VerifyPassword(password, stored string) (bool, error) {
	salt, digest, memory, iterations, parallelism, err := decodePasswordHash(stored)
	if err != nil {
		return false, err
	}
	derived := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(digest)))
	return subtle.ConstantTimeCompare(derived, digest) == 1, nil
}

func decodePasswordHash(stored string) (salt, digest []byte, memory, iterations uint32, parallelism uint8, err error) {
	parts := strings.Split(stored, "$")
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, digest
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, nil, 0, 0, 0, fmt.Errorf("%w: not an argon2id hash", ErrHashFormat)
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, nil, 0, 0, 0, fmt.Errorf("%w: unsupported argon2 version", ErrHashFormat)
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("%w: bad parameter block", ErrHashFormat)
	}
	if memory == 0 || iterations == 0 || parallelism == 0 {
		return nil, nil, 0, 0, 0, fmt.Errorf("%w: zero-valued parameter", ErrHashFormat)
	}
	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("%w: bad salt encoding", ErrHashFormat)
	}
	digest, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("%w: bad digest encoding", ErrHashFormat)
	}
	if len(digest) == 0 {
		return nil, nil, 0, 0, 0, fmt.Errorf("%w: empty digest", ErrHashFormat)
	}
	return salt, digest, memory, iterations, parallelism, nil
}
