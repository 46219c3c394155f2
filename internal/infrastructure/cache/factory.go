package cache

import (
	"context"

	"github.com/obras/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewFromConfig builds the cache selected by cfg.Backend. It returns a nil
// cache for "none". When Redis is unreachable the in-memory cache is used.
// The returned close function is never nil.
func NewFromConfig(ctx context.Context, cfg config.CacheConfig, redisCfg config.RedisConfig, logger *zap.Logger) (SnapshotCache, func() error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "none":
		return nil, noop
	case "redis":
		client, err := NewRedisClient(ctx, redisCfg)
		if err != nil {
			logger.Warn("Redis unavailable, falling back to in-memory snapshot cache",
				zap.String("addr", redisCfg.Addr()),
				zap.Error(err),
			)
			return NewInMemorySnapshotCache(cfg.TTL), noop
		}
		logger.Info("Using Redis snapshot cache", zap.String("addr", redisCfg.Addr()))
		return NewRedisSnapshotCache(client, cfg.KeyPrefix, cfg.TTL), client.Close
	default:
		return NewInMemorySnapshotCache(cfg.TTL), noop
	}
}
