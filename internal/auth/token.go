package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

const secretEnvVariable = "TAU_AUTH_SECRET"

var (
	secretMu sync.Mutex
	secret   cachedSecret
)

type cachedSecret struct {
	value []byte
	ready bool
}

// GenerateToken produces an opaque bearer token with 256 bits of CSPRNG
// entropy, XOR-folded with the wall-clock timestamp and, when
// TAU_AUTH_SECRET is set, a deployment-wide secret. The CSPRNG remains
// the entropy floor; the extra layers only raise the bar against a
// compromised random source. The result is URL-safe and unpadded.
func GenerateToken() (string, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("read csprng: %w", err)
	}

	for i, b := range deploymentSecret() {
		buf[i%len(buf)] ^= b
	}

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(time.Now().Unix()))
	for i, b := range ts {
		for offset := 0; offset < len(buf)/len(ts); offset++ {
			buf[(offset*len(ts))+(i%len(buf))] ^= b
		}
	}

	return base64.RawURLEncoding.EncodeToString(buf[:]), nil
}

// HashToken maps a presented token to its storage form: a deterministic,
// salt-free SHA-256 digest usable as an equality lookup key. Tokens
// already carry 256 bits of entropy, so unlike passwords they need no
// slow salted hash to resist offline guessing.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func deploymentSecret() []byte {
	secretMu.Lock()
	defer secretMu.Unlock()
	if secret.ready {
		return secret.value
	}
	raw := strings.TrimSpace(os.Getenv(secretEnvVariable))
	secret.value = []byte(raw)
	secret.ready = true
	return secret.value
}

// ResetSecretForTests clears the cached deployment secret. Only intended
// for test use.
func ResetSecretForTests() {
	secretMu.Lock()
	defer secretMu.Unlock()
	secret = cachedSecret{}
}
