package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingScript trims the window, admits the event only while under the
// limit, and returns {admitted, count, oldest score}. Scores are unix micros.
var slidingScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local admitted = 0
if count < limit then
	redis.call('ZADD', key, now, ARGV[4])
	count = count + 1
	admitted = 1
end
redis.call('PEXPIRE', key, math.ceil(window / 1000))
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local first = now
if oldest[2] then
	first = tonumber(oldest[2])
end
return {admitted, count, first}
`)

// SlidingRedis is a sliding-log Limiter on a Redis sorted set. Rejected
// events are not logged, so a client hammering the limit does not push its
// own reset further out.
type SlidingRedis struct {
	Client *redis.Client
	Prefix string
	Now    func() time.Time
}

// Take implements Limiter.
func (l SlidingRedis) Take(ctx context.Context, key string, rate Rate) (Decision, error) {
	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}
	if l.Client == nil || rate.disabled() {
		return unlimited(now, rate), nil
	}

	res, err := slidingScript.Run(ctx, l.Client, []string{l.Prefix + key},
		now.UnixMicro(), rate.Window.Microseconds(), rate.Limit, uuid.NewString()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: sliding window: %w", err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("ratelimit: sliding window: unexpected reply %v", res)
	}
	return Decision{
		Allowed:   res[0] == 1,
		Remaining: max(rate.Limit-int(res[1]), 0),
		Reset:     time.UnixMicro(res[2]).Add(rate.Window),
	}, nil
}
