package cache

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// LoadFunc reads the authoritative value of a counter from storage. It runs
// once per cache miss to seed the entry.
type LoadFunc func(ctx context.Context) (int64, error)

// CounterCache keeps per-entity counters with atomic increment and
// decrement. On a hit, the delta is applied with the store's atomic
// INCR/DECR, so concurrent mutations from different processes never lose an
// update. On a miss the counter is seeded from storage with a TTL, which is
// the only non-atomic path; the storage column itself is always moved with
// an atomic column update at the call site, so the seed re-converges within
// one TTL even if it races.
type CounterCache struct {
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

func NewCounterCache(store Store, ttl time.Duration, logger *zap.Logger) *CounterCache {
	return &CounterCache{store: store, ttl: ttl, logger: logger}
}

// Incr adds one to the cached counter, seeding it from load on a miss.
func (c *CounterCache) Incr(ctx context.Context, key string, load LoadFunc) (int64, error) {
	exists, err := c.store.Exists(ctx, key)
	if err != nil {
		return 0, err
	}
	if exists {
		value, err := c.store.Incr(ctx, key)
		if err != nil {
			return 0, err
		}
		c.touch(ctx, key)
		return value, nil
	}
	return c.seed(ctx, key, load)
}

// Decr subtracts one from the cached counter, seeding it from load on a
// miss. Callers must only decrement on confirmed prior existence of the
// counted relationship; a negative result means that check was missed
// upstream and is logged loudly rather than clamped.
func (c *CounterCache) Decr(ctx context.Context, key string, load LoadFunc) (int64, error) {
	exists, err := c.store.Exists(ctx, key)
	if err != nil {
		return 0, err
	}
	if !exists {
		return c.seed(ctx, key, load)
	}
	value, err := c.store.Decr(ctx, key)
	if err != nil {
		return 0, err
	}
	c.touch(ctx, key)
	if value < 0 {
		c.logger.Error("counter underflow", zap.String("key", key), zap.Int64("value", value))
	}
	return value, nil
}

// touch re-arms the TTL after an atomic update. The entry can expire between
// the existence check and the INCR/DECR, in which case the store recreates it
// with no expiry; without the refresh such an entry would never self-heal.
func (c *CounterCache) touch(ctx context.Context, key string) {
	if err := c.store.Expire(ctx, key, c.ttl); err != nil {
		c.logger.Warn("counter cache expire failed", zap.String("key", key), zap.Error(err))
	}
}

// Get returns the cached counter, seeding it from load on a miss.
func (c *CounterCache) Get(ctx context.Context, key string, load LoadFunc) (int64, error) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if ok {
		if value, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
			return value, nil
		}
		// Corrupt entry, reseed below.
	}
	return c.seed(ctx, key, load)
}

func (c *CounterCache) seed(ctx context.Context, key string, load LoadFunc) (int64, error) {
	value, err := load(ctx)
	if err != nil {
		return 0, err
	}
	if err := c.store.Set(ctx, key, strconv.FormatInt(value, 10), c.ttl); err != nil {
		c.logger.Warn("counter cache seed failed", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}

// Invalidate drops the cached counter for key.
func (c *CounterCache) Invalidate(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}
