package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"video-gate-platform/internal/domain/model"
	"video-gate-platform/internal/domain/ports/repository"
	"video-gate-platform/internal/infra/metrics"
	red "video-gate-platform/internal/infra/redis"
)

var _ repository.SubscriptionRepository = (*subscriptionRepoCacheDecorator)(nil)

// subscriptionRepoCacheDecorator caches per-user subscription lookups, which
// sit on the hot path of every access check. The TTL must stay well under the
// access window so a cancelled subscription cannot outlive its cache entry by
// a user-visible margin.
type subscriptionRepoCacheDecorator struct {
	inner repository.SubscriptionRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewSubscriptionRepoCacheDecorator(inner repository.SubscriptionRepository, cache red.RedisClient, ttl time.Duration) repository.SubscriptionRepository {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &subscriptionRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func subKey(userID string) string { return fmt.Sprintf("sub:user:%s", userID) }

func (d *subscriptionRepoCacheDecorator) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	// Transactional reads bypass the cache so ledger preconditions always see
	// committed storage state.
	if tx != nil {
		return d.inner.FindByUser(ctx, tx, userID)
	}

	val, err := d.cache.Get(ctx, subKey(userID))
	if err == nil {
		metrics.IncCacheRequest("subscription", "hit")
		var sub model.Subscription
		if json.Unmarshal([]byte(val), &sub) == nil {
			return &sub, nil
		}
	} else if err != redis.Nil {
		// fall through to storage on real redis errors
	}

	metrics.IncCacheRequest("subscription", "miss")
	sub, err := d.inner.FindByUser(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if b, merr := json.Marshal(sub); merr == nil {
		_ = d.cache.Set(ctx, subKey(userID), b, d.ttl)
	}
	return sub, nil
}

func (d *subscriptionRepoCacheDecorator) Upsert(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	_ = d.cache.Del(ctx, subKey(s.UserID))
	return d.inner.Upsert(ctx, tx, s)
}

func (d *subscriptionRepoCacheDecorator) CountActive(ctx context.Context, tx repository.Tx) (int, error) {
	return d.inner.CountActive(ctx, tx)
}

func (d *subscriptionRepoCacheDecorator) FindExpiring(ctx context.Context, tx repository.Tx, withinDays int) ([]*model.Subscription, error) {
	return d.inner.FindExpiring(ctx, tx, withinDays)
}
