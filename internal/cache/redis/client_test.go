package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradefetch/internal/domain"
)

func TestClientKey(t *testing.T) {
	c := &Client{prefix: DefaultKeyPrefix}
	assert.Equal(t, "tradefetch:lock:run", c.key("lock", "run"))
	assert.Equal(t, "tradefetch:ratelimit:hyperliquid", c.key("ratelimit", "hyperliquid"))
}

func TestSlidingWindowScriptEmbedded(t *testing.T) {
	require.NotEmpty(t, slidingWindowLua)
	assert.Contains(t, slidingWindowLua, "ZREMRANGEBYSCORE")
	assert.Contains(t, slidingWindowLua, "PEXPIRE")
}

func TestNew_UnreachableServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := New(ctx, ClientConfig{Addr: "127.0.0.1:1", MaxRetries: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis: ping 127.0.0.1:1")
}

func TestReleaseLockScriptEmbedded(t *testing.T) {
	assert.Contains(t, releaseLockLua, "redis.call('GET', KEYS[1]) == ARGV[1]")
	assert.Contains(t, releaseLockLua, "DEL")
}

func TestHolderName(t *testing.T) {
	assert.Equal(t, "worker-1:4242", holderName("worker-1", 4242))
	assert.Equal(t, "unknown:7", holderName("", 7))
}

func TestLockHeldError(t *testing.T) {
	err := lockHeldError("run", "worker-1:4242/7c9e6679-7425-40de-944b-e07fc1f90ae7", 90*time.Minute+400*time.Millisecond)
	require.ErrorIs(t, err, domain.ErrLockHeld)
	assert.Equal(t, "redis: lock run held by worker-1:4242 for another 1h30m0s: lock already held", err.Error())

	err = lockHeldError("run", "", -2)
	require.ErrorIs(t, err, domain.ErrLockHeld)
	assert.Equal(t, "redis: lock run held by unknown holder: lock already held", err.Error())
}

func TestRunLock_UnreachableServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	lock := NewRunLock(&Client{
		rdb:    redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1}),
		prefix: DefaultKeyPrefix,
	})
	unlock, err := lock.Acquire(ctx, "run", time.Minute)
	require.Error(t, err)
	assert.Nil(t, unlock)
	assert.NotErrorIs(t, err, domain.ErrLockHeld)
	assert.Contains(t, err.Error(), "redis: take lock run")
}
