// Package ids produces request identifiers for log and audit
// correlation. Entity identifiers elsewhere in the service are UUIDs;
// these are ULIDs so log lines sort by time.
package ids

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// RequestID returns a lexicographically sortable identifier for one
// inbound request.
func RequestID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
