package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/thanhnm3/khomypham/internal/domain/inventory"
	"go.uber.org/zap"
)

// ErrNotObtained is returned when the lock stayed busy for every retry
var ErrNotObtained = errors.New("lock not obtained")

const defaultKeyPrefix = "ledger:lock:"

// RedisProductLocker serialises ledger mutations across processes with a
// Redis lease. While a lock is held its TTL is refreshed at half-life so a
// long allocation never outlives its lease.
type RedisProductLocker struct {
	client        *redislock.Client
	keyPrefix     string
	ttl           time.Duration
	retryInterval time.Duration
	retryCount    int
	logger        *zap.Logger
}

// RedisLockerOption configures a RedisProductLocker
type RedisLockerOption func(*RedisProductLocker)

// WithKeyPrefix sets the prefix of every Redis key
func WithKeyPrefix(prefix string) RedisLockerOption {
	return func(l *RedisProductLocker) {
		l.keyPrefix = prefix
	}
}

// WithTTL sets the lease length
func WithTTL(ttl time.Duration) RedisLockerOption {
	return func(l *RedisProductLocker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithRetry sets the linear backoff used while the lock is busy
func WithRetry(interval time.Duration, count int) RedisLockerOption {
	return func(l *RedisProductLocker) {
		l.retryInterval = interval
		l.retryCount = count
	}
}

// WithLockLogger sets the logger
func WithLockLogger(logger *zap.Logger) RedisLockerOption {
	return func(l *RedisProductLocker) {
		l.logger = logger
	}
}

// NewRedisProductLocker creates a locker over an existing Redis client
func NewRedisProductLocker(client redis.UniversalClient, opts ...RedisLockerOption) *RedisProductLocker {
	l := &RedisProductLocker{
		client:        redislock.New(client),
		keyPrefix:     defaultKeyPrefix,
		ttl:           30 * time.Second,
		retryInterval: 50 * time.Millisecond,
		retryCount:    100,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock obtains the lease for key, retrying linearly while it is busy
func (l *RedisProductLocker) Lock(ctx context.Context, key string) (func(), error) {
	lock, err := l.client.Obtain(ctx, l.keyPrefix+key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(l.retryInterval), l.retryCount),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrNotObtained, key)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.keepAlive(lock, stop)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			wg.Wait()
			if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				l.logger.Warn("failed to release lock",
					zap.String("key", key),
					zap.Error(err),
				)
			}
		})
	}, nil
}

func (l *RedisProductLocker) keepAlive(lock *redislock.Lock, stop <-chan struct{}) {
	ticker := time.NewTicker(l.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := lock.Refresh(context.Background(), l.ttl, nil); err != nil {
				l.logger.Error("failed to refresh lock",
					zap.String("key", lock.Key()),
					zap.Error(err),
				)
				return
			}
		}
	}
}

var _ inventory.ProductLocker = (*RedisProductLocker)(nil)
