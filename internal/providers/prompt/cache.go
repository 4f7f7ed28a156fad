package prompt

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const cacheKeyPrefix = "ytthumbs:refine:"

// CachedRefiner memoizes refinements of identical (raw, style) pairs in Redis.
// Cache failures fall through to the wrapped refiner; refiner failures are
// never cached.
type CachedRefiner struct {
	next   Refiner
	rdb    redis.Cmdable
	ttl    time.Duration
	logger zerolog.Logger
}

func NewCachedRefiner(next Refiner, rdb redis.Cmdable, ttl time.Duration, logger zerolog.Logger) *CachedRefiner {
	return &CachedRefiner{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func (c *CachedRefiner) Refine(ctx context.Context, raw, style string) (string, error) {
	key := cacheKey(raw, style)

	cached, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil && cached != "":
		c.logger.Debug().Str("key", key).Msg("refine cache hit")
		return cached, nil
	case err != nil && !errors.Is(err, redis.Nil):
		c.logger.Warn().Err(err).Msg("refine cache read failed")
	}

	refined, err := c.next.Refine(ctx, raw, style)
	if err != nil {
		return "", err
	}
	if err := c.rdb.Set(ctx, key, refined, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("refine cache write failed")
	}
	return refined, nil
}

func cacheKey(raw, style string) string {
	sum := sha256.Sum256([]byte(raw + "\x00" + style))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

var _ Refiner = (*CachedRefiner)(nil)
