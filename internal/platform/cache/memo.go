package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long fetched market data is reused.
const DefaultTTL = 60 * time.Second

// Memo implements cache-or-compute on top of a Store. Concurrent misses for
// the same key share a single computation.
type Memo struct {
	store Store
	group singleflight.Group
}

// NewMemo creates a Memo over store.
func NewMemo(store Store) *Memo {
	return &Memo{store: store}
}

// GetOrCompute returns the live value stored under key, or runs compute,
// stores its result and returns it. A failing compute stores nothing and its
// error is returned unchanged. The shared computation is not cancelled when
// one waiting caller's ctx is; each caller stops waiting on its own ctx.
func GetOrCompute[T any](ctx context.Context, m *Memo, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if v, ok := lookup[T](ctx, m.store, key, ttl); ok {
		return v, nil
	}

	ch := m.group.DoChan(key, func() (any, error) {
		shared := context.WithoutCancel(ctx)
		// Another flight may have filled the key between our miss and now
		if v, ok := lookup[T](shared, m.store, key, ttl); ok {
			return v, nil
		}
		v, err := safeCompute(shared, compute)
		if err != nil {
			return nil, err
		}
		if b, err := json.Marshal(v); err == nil {
			m.store.Set(shared, key, b, ttl)
		} else {
			slog.Warn("cache encode failed", "key", key, "error", err)
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func lookup[T any](ctx context.Context, s Store, key string, ttl time.Duration) (T, bool) {
	var v T
	b, ok := s.Get(ctx, key, ttl)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(b, &v); err != nil {
		// Delete corrupted cache entry
		slog.Warn("cache decode failed; dropping entry", "key", key, "error", err)
		s.Delete(ctx, key)
		var zero T
		return zero, false
	}
	return v, true
}

// safeCompute converts a panic in compute into an error; singleflight.DoChan
// would otherwise re-panic on a goroutine nobody can recover.
func safeCompute[T any](ctx context.Context, compute func(ctx context.Context) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cache compute panicked: %v", r)
		}
	}()
	return compute(ctx)
}
