package ratelimit

import (
	"context"
	"fmt"
	"time"

	limiter "github.com/ulule/limiter/v3"
)

// Rate allows Limit events per Window. A non-positive field disables it.
type Rate struct {
	Limit  int
	Window time.Duration
}

func (r Rate) disabled() bool { return r.Limit <= 0 || r.Window <= 0 }

// Decision is the outcome of one Take.
type Decision struct {
	Allowed   bool
	Remaining int
	// Reset is when the next slot frees up.
	Reset time.Time
}

func unlimited(now time.Time, rate Rate) Decision {
	return Decision{Allowed: true, Remaining: max(rate.Limit, 0), Reset: now.Add(rate.Window)}
}

// Limiter spends one event of key's budget.
type Limiter interface {
	Take(ctx context.Context, key string, rate Rate) (Decision, error)
}

// StoreLimiter is a fixed-window Limiter over a ulule/limiter store, memory
// or Redis.
type StoreLimiter struct {
	Store limiter.Store
}

// Take implements Limiter.
func (l StoreLimiter) Take(ctx context.Context, key string, rate Rate) (Decision, error) {
	if l.Store == nil || rate.disabled() {
		return unlimited(time.Now(), rate), nil
	}
	res, err := limiter.New(l.Store, limiter.Rate{Period: rate.Window, Limit: int64(rate.Limit)}).Get(ctx, key)
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: store: %w", err)
	}
	return Decision{Allowed: !res.Reached, Remaining: int(res.Remaining), Reset: time.Unix(res.Reset, 0)}, nil
}
