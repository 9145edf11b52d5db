package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// ObjectCache is a read-through cache for single entities, keyed by
// (type, id) through the key helpers. A zero ttl disables expiry, which is
// what the follow-graph set uses: its staleness directly produces wrong
// has_followed annotations, so it relies purely on explicit invalidation.
type ObjectCache struct {
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

func NewObjectCache(store Store, ttl time.Duration, logger *zap.Logger) *ObjectCache {
	return &ObjectCache{store: store, ttl: ttl, logger: logger}
}

// Get unmarshals the cached entry for key into dest. On a miss it calls
// load, caches the result, and fills dest from it. A cache-read failure
// degrades to a plain storage read; a cache-write failure is logged and
// swallowed.
func (c *ObjectCache) Get(ctx context.Context, key string, dest interface{}, load func(ctx context.Context) (interface{}, error)) error {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("object cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		if err := json.Unmarshal([]byte(raw), dest); err == nil {
			return nil
		}
		// Corrupt entry, reload below.
		c.logger.Warn("object cache entry corrupt", zap.String("key", key))
	}

	obj, err := load(ctx)
	if err != nil {
		return err
	}
	buf, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	if err := c.store.Set(ctx, key, string(buf), c.ttl); err != nil {
		c.logger.Warn("object cache write failed", zap.String("key", key), zap.Error(err))
	}
	return json.Unmarshal(buf, dest)
}

// Invalidate drops the cached entry for key. Every update or delete of the
// underlying entity must call this, including for dependent sub-entities
// cached under their own key.
func (c *ObjectCache) Invalidate(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}
