package di

import (
	"context"
	"log/slog"

	"stock_forecast/internal/platform/cache"
	"stock_forecast/internal/platform/config"
	infraredis "stock_forecast/internal/platform/redis"
)

// NewCacheStore creates the Store selected by cache.backend.
// If Redis is requested but unreachable, it falls back to the in-process store.
// The returned func releases the backend's resources.
func NewCacheStore(ctx context.Context, cfg *config.Config) (cache.Store, func() error) {
	if cfg.Cache.Backend == "redis" {
		rdb, err := infraredis.NewRedisClient(ctx, cfg.RedisAddr(), cfg.Redis.Password)
		if err == nil {
			return cache.NewRedisStore(rdb, "stock"), rdb.Close
		}
		slog.Warn("Redis unavailable. Falling back to in-memory cache.", "error", err)
	}
	store := cache.NewMemoryStore(cfg.Cache.MaxEntries, cfg.Cache.TTL, nil)
	return store, func() error { return nil }
}
