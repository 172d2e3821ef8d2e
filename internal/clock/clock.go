// Package clock is component A: the sole source of "now" and random
// identifiers for every other component. Every store that needs to reason
// about quota windows, token expiry, or membership boundaries takes a
// Clock instead of calling time.Now() directly, so tests can pin "now" at
// an exact hour/day boundary for quota edge-case tests.
package clock

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"
	"time"
)

// Clock is the injectable time source every component depends on.
type Clock interface {
	Now() time.Time
}

// System is the production Clock backed by time.Now(), always in UTC.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// Frozen is a test Clock that returns a fixed instant until advanced.
type Frozen struct {
	mu  sync.Mutex
	now time.Time
}

func NewFrozen(t time.Time) *Frozen {
	return &Frozen{now: t.UTC()}
}

func (f *Frozen) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Frozen) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *Frozen) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t.UTC()
}

// HourBucket returns the hour-granularity bucket key used by UsageCounter,
// e.g. "2026073114" for 2026-07-31T14:xx:xxZ.
func HourBucket(t time.Time) string {
	return t.UTC().Format("2006010215")
}

// DayBucket returns the day-granularity bucket key, e.g. "20260731".
func DayBucket(t time.Time) string {
	return t.UTC().Format("20060102")
}

// NewOpaqueID returns a random, URL-safe opaque identifier suitable for
// order IDs, chat handles, and anywhere else an opaque ID is preferred
// over a database serial exposed to clients.
func NewOpaqueID(prefix string) string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("clock: failed to read random bytes: %v", err))
	}
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b[:]))
}

// NewVerificationCode returns a numeric one-time code of the given digit
// length, e.g. "654321" for length 6.
func NewVerificationCode(digits int) string {
	max := big.NewInt(1)
	ten := big.NewInt(10)
	for i := 0; i < digits; i++ {
		max.Mul(max, ten)
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		panic(fmt.Sprintf("clock: failed to generate verification code: %v", err))
	}
	return fmt.Sprintf("%0*d", digits, n.Int64())
}

// NewRefreshTokenValue returns a 256-bit random token value; only its hash
// is ever persisted.
func NewRefreshTokenValue() string {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("clock: failed to read random bytes: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b[:])
}
