package trust

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const cacheKeyPrefix = "trust_score:"

// CachedProvider keeps recent scores in Redis. Cache failures are logged and
// skipped; only the wrapped provider's errors reach the caller.
type CachedProvider struct {
	next  Provider
	redis *redis.Client
	ttl   time.Duration
	log   logrus.FieldLogger
}

// NewCachedProvider creates a new Redis-cached provider
func NewCachedProvider(next Provider, rdb *redis.Client, ttl time.Duration, log logrus.FieldLogger) *CachedProvider {
	return &CachedProvider{next: next, redis: rdb, ttl: ttl, log: log}
}

// TrustScore returns the cached score, asking next on a miss.
func (p *CachedProvider) TrustScore(ctx context.Context, instructorID string) (int, error) {
	if p.redis == nil {
		return p.next.TrustScore(ctx, instructorID)
	}

	key := cacheKeyPrefix + instructorID
	cached, err := p.redis.Get(ctx, key).Int()
	switch {
	case err == nil && validateScore(cached) == nil:
		return cached, nil
	case err != nil && !errors.Is(err, redis.Nil):
		p.log.WithError(err).WithField("instructor_id", instructorID).Warn("trust cache read failed")
	}

	score, err := p.next.TrustScore(ctx, instructorID)
	if err != nil {
		return 0, err
	}

	if err := p.redis.Set(ctx, key, strconv.Itoa(score), p.ttl).Err(); err != nil {
		p.log.WithError(err).WithField("instructor_id", instructorID).Warn("trust cache write failed")
	}
	return score, nil
}

// Invalidate drops a cached score, e.g. after the governance service
// announces a recalculation.
func (p *CachedProvider) Invalidate(ctx context.Context, instructorID string) error {
	if p.redis == nil {
		return nil
	}
	return p.redis.Del(ctx, cacheKeyPrefix+instructorID).Err()
}
