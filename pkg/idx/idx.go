// Package idx generates the lexicographically sortable identifiers the client
// stamps on outgoing requests (X-Request-ID), renewal episodes and, in tests,
// fake notifications.
package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type ID string

// Zero is the empty ID.
const Zero ID = ""

// ErrInvalid reports a malformed ULID string.
var ErrInvalid = errors.New("idx: invalid ulid")

var (
	globalOnce sync.Once
	global     *generator
)

// generator hands out ULIDs from a monotonic source so IDs minted within the
// same millisecond still sort in creation order.
type generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func (g *generator) newAt(t time.Time) ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	u := ulid.MustNew(ulid.Timestamp(t), g.entropy)
	return ID(u.String())
}

func initGlobal() {
	global = &generator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// New returns a new ID stamped with the current UTC time.
func New() ID {
	return NewAt(time.Now().UTC())
}

// NewAt returns an ID stamped with t.
func NewAt(t time.Time) ID {
	globalOnce.Do(initGlobal)
	return global.newAt(t)
}

// Prefixed returns a new ID rendered as "<prefix>_<ulid>" in lower case, which
// reads better in logs (e.g. "req_01j...", "renew_01j...").
func Prefixed(prefix string) string {
	return prefix + "_" + strings.ToLower(New().String())
}

// Parse validates s as a ULID.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalid
	}
	if _, err := ulid.ParseStrict(s); err != nil {
		return Zero, ErrInvalid
	}
	return ID(s), nil
}

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool { return id == Zero }

// String returns the canonical string form.
func (id ID) String() string { return string(id) }

// Time extracts the embedded UTC timestamp, or the zero time for invalid IDs.
func (id ID) Time() time.Time {
	if id.IsZero() {
		return time.Time{}
	}
	u, err := ulid.ParseStrict(id.String())
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time())
}

// Compare reports the lexical ordering between a and b (-1, 0, +1).
func Compare(a, b ID) int {
	return strings.Compare(a.String(), b.String())
}
