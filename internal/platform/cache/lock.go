package cache

import (
	"context"
	"fmt"
	"time"

	"codeduel/internal/common"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Release only if we still hold the lock.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Locker is a Redis mutex keyed by name (SET NX PX, compare-and-delete release).
type Locker struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
}

func NewLocker(rdb *redis.Client, prefix string, ttl, wait time.Duration) *Locker {
	return &Locker{rdb: rdb, prefix: prefix, ttl: ttl, wait: wait}
}

// WithLock runs fn while holding the named lock. Acquisition is retried until
// the configured wait elapses, then common.ErrLockNotAcquired is returned.
func (l *Locker) WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	key := l.prefix + name
	value := uuid.NewString()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond
	b.MaxElapsedTime = l.wait
	var policy backoff.BackOff = b
	if l.wait <= 0 {
		policy = &backoff.StopBackOff{}
	}

	err := backoff.Retry(func() error {
		ok, err := l.rdb.SetNX(ctx, key, value, l.ttl).Result()
		if err != nil {
			return backoff.Permanent(fmt.Errorf("acquiring lock %s: %w", key, err))
		}
		if !ok {
			return common.ErrLockNotAcquired
		}
		return nil
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		return err
	}

	defer func() {
		deleted, err := releaseScript.Run(context.WithoutCancel(ctx), l.rdb, []string{key}, value).Int64()
		if err != nil {
			log.WithFields(log.Fields{"from": "locker", "key": key}).WithError(err).Error("failed to release lock")
		} else if deleted != 1 {
			log.WithFields(log.Fields{"from": "locker", "key": key}).Warn("lock expired before release")
		}
	}()

	return fn(ctx)
}
