package redis

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/tradefetch/internal/domain"
)

//go:embed scripts/release_lock.lua
var releaseLockLua string

const releaseTimeout = 5 * time.Second

// RunLock keeps two ingestion runs, possibly on different hosts, from
// working the same wallets at once. The lock value names its holder
// (host, pid and a random nonce) so a blocked run can say who owns it.
type RunLock struct {
	client  *Client
	release *redis.Script
	holder  string
}

// NewRunLock creates a RunLock whose holder identity is this process.
func NewRunLock(c *Client) *RunLock {
	host, _ := os.Hostname()
	return &RunLock{
		client:  c,
		release: redis.NewScript(releaseLockLua),
		holder:  holderName(host, os.Getpid()),
	}
}

// Acquire takes lock:<name> for ttl. The returned release func is
// idempotent and works after ctx is cancelled. A lock owned by someone
// else yields domain.ErrLockHeld with the owner and remaining TTL.
func (l *RunLock) Acquire(ctx context.Context, name string, ttl time.Duration) (func(), error) {
	key := l.client.key("lock", name)
	token := l.holder + "/" + uuid.NewString()

	ok, err := l.client.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: take lock %s: %w", name, err)
	}
	if !ok {
		return nil, l.heldError(ctx, key, name)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
			defer cancel()
			_ = l.release.Run(rctx, l.client.rdb, []string{key}, token).Err()
		})
	}, nil
}

func (l *RunLock) heldError(ctx context.Context, key, name string) error {
	pipe := l.client.rdb.Pipeline()
	owner := pipe.Get(ctx, key)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis: lock %s: %w", name, domain.ErrLockHeld)
	}
	return lockHeldError(name, owner.Val(), ttl.Val())
}

func holderName(host string, pid int) string {
	if host == "" {
		host = "unknown"
	}
	return host + ":" + strconv.Itoa(pid)
}

// lockHeldError describes a contended lock. owner is the stored token,
// holder/nonce; only the holder part is reported.
func lockHeldError(name, owner string, ttl time.Duration) error {
	holder, _, _ := strings.Cut(owner, "/")
	if holder == "" {
		holder = "unknown holder"
	}
	if ttl > 0 {
		return fmt.Errorf("redis: lock %s held by %s for another %s: %w", name, holder, ttl.Round(time.Second), domain.ErrLockHeld)
	}
	return fmt.Errorf("redis: lock %s held by %s: %w", name, holder, domain.ErrLockHeld)
}

var _ domain.LockManager = (*RunLock)(nil)
