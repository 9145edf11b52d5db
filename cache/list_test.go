package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func countingSource(items []string, calls *int) SourceFunc {
	return func(ctx context.Context, limit int) ([]string, error) {
		*calls++
		if len(items) > limit {
			return items[:limit], nil
		}
		return items, nil
	}
}

func TestListCachePopulateOnce(t *testing.T) {
	ctx := context.Background()
	lc := NewListCache(NewMemoryStore(), 5, time.Hour, zap.NewNop())

	calls := 0
	source := countingSource([]string{"c", "b", "a"}, &calls)

	items, err := lc.LoadOrPopulate(ctx, "tweets:1", source)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, items)
	assert.Equal(t, 1, calls)

	// The second read is a hit and must not touch the source again.
	items, err = lc.LoadOrPopulate(ctx, "tweets:1", source)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, items)
	assert.Equal(t, 1, calls)
}

func TestListCachePushFront(t *testing.T) {
	ctx := context.Background()
	lc := NewListCache(NewMemoryStore(), 3, time.Hour, zap.NewNop())

	calls := 0
	source := countingSource([]string{"b", "a"}, &calls)

	_, err := lc.LoadOrPopulate(ctx, "tweets:1", source)
	require.NoError(t, err)

	require.NoError(t, lc.PushFront(ctx, "tweets:1", "c", source))
	items, err := lc.LoadOrPopulate(ctx, "tweets:1", source)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, items)

	// Pushing onto a full list evicts the oldest entry.
	require.NoError(t, lc.PushFront(ctx, "tweets:1", "d", source))
	items, err = lc.LoadOrPopulate(ctx, "tweets:1", source)
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "c", "b"}, items)
	assert.Equal(t, 1, calls)
}

func TestListCachePushFrontColdKeyPopulatesInstead(t *testing.T) {
	ctx := context.Background()
	lc := NewListCache(NewMemoryStore(), 5, time.Hour, zap.NewNop())

	// The source already contains the item being pushed: storage was
	// written before the push. Seeding from source instead of pushing keeps
	// the item from appearing twice.
	calls := 0
	source := countingSource([]string{"c", "b", "a"}, &calls)

	require.NoError(t, lc.PushFront(ctx, "newsfeeds:1", "c", source))
	assert.Equal(t, 1, calls)

	items, err := lc.LoadOrPopulate(ctx, "newsfeeds:1", source)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, items)
}

func TestListCachePushFrontSameItemTwiceReconciles(t *testing.T) {
	ctx := context.Background()
	lc := NewListCache(NewMemoryStore(), 5, time.Hour, zap.NewNop())

	calls := 0
	source := countingSource([]string{"b", "a"}, &calls)

	_, err := lc.LoadOrPopulate(ctx, "newsfeeds:1", source)
	require.NoError(t, err)

	// A redelivered push lands twice on the warm list.
	require.NoError(t, lc.PushFront(ctx, "newsfeeds:1", "c", source))
	require.NoError(t, lc.PushFront(ctx, "newsfeeds:1", "c", source))

	// Rebuilding from storage removes the duplicate: storage holds one row
	// per item, so the reconciled list exposes "c" once.
	require.NoError(t, lc.Invalidate(ctx, "newsfeeds:1"))
	source = countingSource([]string{"c", "b", "a"}, &calls)
	items, err := lc.LoadOrPopulate(ctx, "newsfeeds:1", source)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, items)
}

func TestListCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	lc := NewListCache(NewMemoryStore(), 5, time.Hour, zap.NewNop())

	calls := 0
	source := countingSource([]string{"a"}, &calls)

	_, err := lc.LoadOrPopulate(ctx, "tweets:1", source)
	require.NoError(t, err)
	require.NoError(t, lc.Invalidate(ctx, "tweets:1"))

	_, err = lc.LoadOrPopulate(ctx, "tweets:1", source)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestListCacheEmptySourceDoesNotSeed(t *testing.T) {
	ctx := context.Background()
	lc := NewListCache(NewMemoryStore(), 5, time.Hour, zap.NewNop())

	calls := 0
	source := countingSource(nil, &calls)

	items, err := lc.LoadOrPopulate(ctx, "tweets:9", source)
	require.NoError(t, err)
	assert.Empty(t, items)

	// An empty result is not cached, so the next read asks the source again.
	_, err = lc.LoadOrPopulate(ctx, "tweets:9", source)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
