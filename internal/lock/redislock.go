package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotConfigured is returned when the locker has no Redis client.
var ErrNotConfigured = errors.New("lock: redis client not configured")

const (
	defaultTTL     = 30 * time.Second
	defaultBackoff = 50 * time.Millisecond
)

var releaseScript = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`)

// Locker serialises work across API replicas using a Redis key per lock.
// Startup jobs such as catalog seeding run under it so only one instance
// performs them at a time.
type Locker struct {
	R            *redis.Client
	Prefix       string
	RetryBackoff time.Duration
}

// WithLock runs fn while holding name. It blocks until the lock is acquired
// or ctx is done. The lock is released after fn returns, including on error.
func (l Locker) WithLock(ctx context.Context, name string, ttl time.Duration, fn func(context.Context) error) error {
	if l.R == nil {
		return ErrNotConfigured
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	retry := l.RetryBackoff
	if retry <= 0 {
		retry = defaultBackoff
	}
	key := l.Prefix + name
	token := uuid.NewString()

	for {
		ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			defer l.release(context.WithoutCancel(ctx), key, token)
			return fn(ctx)
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// release deletes key only while it still holds token, so an expired lock
// taken over by another replica is left alone.
func (l Locker) release(ctx context.Context, key, token string) {
	_ = releaseScript.Run(ctx, l.R, []string{key}, token).Err()
}
