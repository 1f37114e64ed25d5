// Package cache provides the TTL memoization layer used in front of the market data provider.
package cache

import (
	"context"
	"strings"
	"time"
)

// Store keeps serialized payloads keyed by string. Implementations are
// best-effort: a failing backend behaves like a miss rather than an error.
type Store interface {
	// Get returns the payload for key if it is younger than ttl.
	Get(ctx context.Context, key string, ttl time.Duration) ([]byte, bool)
	// Set stores payload for key, stamped with the current time.
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration)
	// Delete removes key.
	Delete(ctx context.Context, key string)
	// Name identifies the backend in logs and health output.
	Name() string
}

// Clock returns the current time. Tests inject a fake.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now.
func (SystemClock) Now() time.Time { return time.Now() }

// Key joins parts into a cache key, escaping characters that are awkward in redis keys.
func Key(parts ...string) string {
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = safe(p)
	}
	return strings.Join(out, ":")
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
