package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ListLimit caps every cached list. A list at the cap must never be trusted
// as complete; anything beyond it lives only in storage (the paginator's
// reconciliation rule handles that).
const ListLimit = 200

// DefaultTTL bounds how long a missed invalidation can keep a stale entry
// alive before the cache self-heals.
const DefaultTTL = 7 * 24 * time.Hour

// SourceFunc pulls up to limit items from the source of record in
// descending order, already serialized. It is only invoked on a confirmed
// cache miss, so population happens at a single point.
type SourceFunc func(ctx context.Context, limit int) ([]string, error)

// ListCache maintains a capped, ordered (newest first) cached list per
// owner key. It backs both the per-user tweet list and the per-user feed.
type ListCache struct {
	store  Store
	limit  int
	ttl    time.Duration
	logger *zap.Logger
}

func NewListCache(store Store, limit int, ttl time.Duration, logger *zap.Logger) *ListCache {
	return &ListCache{store: store, limit: limit, ttl: ttl, logger: logger}
}

// Limit reports the list-length cap.
func (c *ListCache) Limit() int {
	return c.limit
}

// LoadOrPopulate returns the full cached list for key, populating it from
// source first if the key is absent. A failed cache write after a
// successful source read is logged and swallowed: the caller still gets the
// items, the cache just stays cold.
func (c *ListCache) LoadOrPopulate(ctx context.Context, key string, source SourceFunc) ([]string, error) {
	exists, err := c.store.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if exists {
		return c.store.LRange(ctx, key, 0, -1)
	}

	items, err := source(ctx, c.limit)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		if err := c.store.RPush(ctx, key, items...); err != nil {
			c.logger.Warn("list cache populate failed", zap.String("key", key), zap.Error(err))
			return items, nil
		}
		if err := c.store.Expire(ctx, key, c.ttl); err != nil {
			c.logger.Warn("list cache expire failed", zap.String("key", key), zap.Error(err))
		}
	}
	return items, nil
}

// PushFront prepends item to the cached list and trims it to the cap. If
// the key is absent the push falls back to a full populate instead: seeding
// a one-element list here would diverge from storage history, and a push
// landing on a cold key is also how out-of-order fanout batches get their
// ordering corrected.
func (c *ListCache) PushFront(ctx context.Context, key, item string, source SourceFunc) error {
	exists, err := c.store.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		_, err := c.LoadOrPopulate(ctx, key, source)
		return err
	}
	if err := c.store.LPush(ctx, key, item); err != nil {
		return err
	}
	return c.store.LTrim(ctx, key, 0, int64(c.limit)-1)
}

// Invalidate drops the cached list for key.
func (c *ListCache) Invalidate(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}
