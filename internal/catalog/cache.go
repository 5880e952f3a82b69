package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	activeListPrefix = "catalog:products:active:"
	generationPrefix = "catalog:products:gen:"
)

func activeListKey(regionID string) string { return activeListPrefix + regionID }

func generationKey(regionID string) string { return generationPrefix + regionID }

// fillScript stores the list only while the region generation still matches
// the one read before loading. A Forget in between bumps it and the fill is
// dropped.
var fillScript = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// Cache keeps the per-region active product list in Redis. A nil *Cache or a
// nil client turns every call into a pass-through.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache returns a cache whose entries expire after ttl.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool { return c != nil && c.client != nil && c.ttl > 0 }

// ActiveList returns the cached list for regionID, calling load on a miss and
// storing its result. Redis failures are logged and fall through to load.
func (c *Cache) ActiveList(ctx context.Context, log zerolog.Logger, regionID string, load func(context.Context) ([]Product, error)) ([]Product, error) {
	if !c.enabled() {
		return load(ctx)
	}
	key := activeListKey(regionID)
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached []Product
		if jerr := json.Unmarshal(raw, &cached); jerr == nil {
			return cached, nil
		}
		log.Warn().Str("key", key).Msg("catalog cache entry corrupt")
	case !errors.Is(err, redis.Nil):
		log.Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
	}

	gen, genErr := c.generation(ctx, regionID)
	products, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		log.Warn().Err(genErr).Str("region", regionID).Msg("catalog cache generation read failed")
		return products, nil
	}
	data, err := json.Marshal(products)
	if err != nil {
		return products, nil
	}
	keys := []string{key, generationKey(regionID)}
	if err := fillScript.Run(ctx, c.client, keys, gen, data, max(c.ttl.Milliseconds(), 1)).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
	}
	return products, nil
}

func (c *Cache) generation(ctx context.Context, regionID string) (string, error) {
	gen, err := c.client.Get(ctx, generationKey(regionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return gen, err
}

// Forget drops the cached lists of the given regions and bumps their
// generation so a fill already in flight is not stored.
func (c *Cache) Forget(ctx context.Context, regionIDs ...string) error {
	if c == nil || c.client == nil || len(regionIDs) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range regionIDs {
			pipe.Incr(ctx, generationKey(id))
			pipe.Del(ctx, activeListKey(id))
		}
		return nil
	})
	return err
}
