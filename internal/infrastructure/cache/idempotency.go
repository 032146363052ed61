// Package cache holds short-lived request state shared across ledger instances.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/thanhnm3/khomypham/internal/infrastructure/config"
	"go.uber.org/zap"
)

// IdempotencyStore remembers which request keys have already been accepted
type IdempotencyStore interface {
	// Reserve claims key for ttl. It returns false when the key is already held.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Forget drops key so the same request may be retried
	Forget(ctx context.Context, key string) error
	Close() error
}

// NewIdempotencyStore picks the store that matches the lock backend: a ledger
// that serialises products through Redis shares its request keys there too.
func NewIdempotencyStore(lockCfg config.LockConfig, redisCfg config.RedisConfig, logger *zap.Logger) (IdempotencyStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lockCfg.Backend != config.LockBackendRedis {
		logger.Info("using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr(),
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("using Redis idempotency store", zap.String("addr", redisCfg.Addr()))
	return NewRedisIdempotencyStore(client, ""), nil
}
