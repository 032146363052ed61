package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/thanhnm3/khomypham/internal/domain/inventory"
	"github.com/thanhnm3/khomypham/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Closer releases resources held by a locker backend
type Closer func() error

// NewProductLocker builds the locker selected by cfg.Backend. The redis
// backend pings the server first and fails fast when it is unreachable.
func NewProductLocker(cfg config.LockConfig, redisCfg config.RedisConfig, logger *zap.Logger) (inventory.ProductLocker, Closer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Backend {
	case "", config.LockBackendLocal:
		logger.Info("using in-process product locker")
		return NewLocalProductLocker(), func() error { return nil }, nil

	case config.LockBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     redisCfg.Addr(),
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}

		logger.Info("using Redis product locker", zap.String("addr", redisCfg.Addr()))
		locker := NewRedisProductLocker(client,
			WithTTL(cfg.TTL),
			WithRetry(cfg.RetryInterval, cfg.RetryCount),
			WithLockLogger(logger),
		)
		return locker, client.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown lock backend %q", cfg.Backend)
}
