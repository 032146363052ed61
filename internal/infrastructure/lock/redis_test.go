package lock

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thanhnm3/khomypham/internal/infrastructure/config"
)

func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewRedisProductLocker_Options(t *testing.T) {
	locker := NewRedisProductLocker(unreachableClient(t),
		WithKeyPrefix("test:"),
		WithTTL(5*time.Second),
		WithRetry(10*time.Millisecond, 3),
	)

	assert.Equal(t, "test:", locker.keyPrefix)
	assert.Equal(t, 5*time.Second, locker.ttl)
	assert.Equal(t, 10*time.Millisecond, locker.retryInterval)
	assert.Equal(t, 3, locker.retryCount)
}

func TestNewRedisProductLocker_IgnoresZeroTTL(t *testing.T) {
	locker := NewRedisProductLocker(unreachableClient(t), WithTTL(0))
	assert.Equal(t, 30*time.Second, locker.ttl)
	assert.Equal(t, defaultKeyPrefix, locker.keyPrefix)
}

func TestRedisProductLocker_ConnectionError(t *testing.T) {
	locker := NewRedisProductLocker(unreachableClient(t), WithRetry(time.Millisecond, 1))

	unlock, err := locker.Lock(context.Background(), "stock:product:a")
	require.Error(t, err)
	assert.Nil(t, unlock)
	assert.NotErrorIs(t, err, ErrNotObtained)
	assert.Contains(t, err.Error(), "stock:product:a")
}

func TestNewProductLocker(t *testing.T) {
	t.Run("defaults to local", func(t *testing.T) {
		locker, closer, err := NewProductLocker(config.LockConfig{}, config.RedisConfig{}, nil)
		require.NoError(t, err)
		assert.IsType(t, &LocalProductLocker{}, locker)
		assert.NoError(t, closer())
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, _, err := NewProductLocker(config.LockConfig{Backend: "etcd"}, config.RedisConfig{}, nil)
		assert.ErrorContains(t, err, "etcd")
	})

	t.Run("redis unreachable", func(t *testing.T) {
		_, _, err := NewProductLocker(
			config.LockConfig{Backend: config.LockBackendRedis},
			config.RedisConfig{Host: "127.0.0.1", Port: 1},
			nil,
		)
		assert.ErrorContains(t, err, "failed to connect to Redis")
	})
}
