package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by Redis. Expiry is delegated to Redis via SET EX.
// A nil client turns every call into a miss / no-op so the service keeps
// working when Redis is unavailable.
type RedisStore struct {
	rdb       *redis.Client
	namespace string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a RedisStore. If namespace is empty, it uses "stock".
func NewRedisStore(rdb *redis.Client, namespace string) *RedisStore {
	if namespace == "" {
		namespace = "stock"
	}
	return &RedisStore{rdb: rdb, namespace: namespace}
}

func (r *RedisStore) Name() string { return "redis" }

func (r *RedisStore) Get(ctx context.Context, key string, _ time.Duration) ([]byte, bool) {
	if r.rdb == nil {
		return nil, false
	}
	b, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("redis get failed", "key", key, "error", err)
		}
		return nil, false
	}
	if len(b) == 0 {
		return nil, false
	}
	return b, true
}

func (r *RedisStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	if r.rdb == nil {
		return
	}
	// Best effort: a failed write only costs a later provider call
	if err := r.rdb.Set(ctx, r.key(key), payload, ttl).Err(); err != nil {
		slog.Warn("redis set failed", "key", key, "error", err)
	}
}

func (r *RedisStore) Delete(ctx context.Context, key string) {
	if r.rdb == nil {
		return
	}
	_ = r.rdb.Del(ctx, r.key(key)).Err()
}

// Ping reports whether the backing Redis is reachable.
func (r *RedisStore) Ping(ctx context.Context) error {
	if r.rdb == nil {
		return errors.New("redis not configured")
	}
	return r.rdb.Ping(ctx).Err()
}

func (r *RedisStore) key(k string) string {
	return r.namespace + ":" + k
}
