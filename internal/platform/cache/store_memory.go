package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxEntries bounds the in-process store when no size is configured.
const DefaultMaxEntries = 1024

type memoryEntry struct {
	payload   []byte
	createdAt time.Time
}

// MemoryStore is a size-bounded in-process Store. Entries are evicted in LRU
// order once the cap is reached, and are considered live while
// now - createdAt < ttl.
type MemoryStore struct {
	entries *lru.Cache[string, memoryEntry]
	clock   Clock
	maxTTL  time.Duration
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore holding at most maxEntries keys.
// maxTTL is the age after which Sweep drops an entry regardless of the ttl
// used by readers. A nil clock uses the wall clock.
func NewMemoryStore(maxEntries int, maxTTL time.Duration, clock Clock) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if clock == nil {
		clock = SystemClock{}
	}
	// lru.New only fails for a non-positive size.
	entries, _ := lru.New[string, memoryEntry](maxEntries)
	return &MemoryStore{entries: entries, clock: clock, maxTTL: maxTTL}
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) Get(_ context.Context, key string, ttl time.Duration) ([]byte, bool) {
	e, ok := m.entries.Get(key)
	if !ok {
		return nil, false
	}
	if m.clock.Now().Sub(e.createdAt) >= ttl {
		return nil, false
	}
	return e.payload, true
}

func (m *MemoryStore) Set(_ context.Context, key string, payload []byte, _ time.Duration) {
	m.entries.Add(key, memoryEntry{payload: payload, createdAt: m.clock.Now()})
}

func (m *MemoryStore) Delete(_ context.Context, key string) {
	m.entries.Remove(key)
}

// Len returns the number of stored entries, live or stale.
func (m *MemoryStore) Len() int {
	return m.entries.Len()
}

// Sweep removes entries older than maxTTL and returns how many were dropped.
func (m *MemoryStore) Sweep() int {
	if m.maxTTL <= 0 {
		return 0
	}
	now := m.clock.Now()
	removed := 0
	for _, k := range m.entries.Keys() {
		e, ok := m.entries.Peek(k)
		if !ok {
			continue
		}
		if now.Sub(e.createdAt) >= m.maxTTL {
			m.entries.Remove(k)
			removed++
		}
	}
	return removed
}
