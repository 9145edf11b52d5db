package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type widget struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestObjectCacheReadThrough(t *testing.T) {
	ctx := context.Background()
	oc := NewObjectCache(NewMemoryStore(), time.Hour, zap.NewNop())

	calls := 0
	load := func(ctx context.Context) (interface{}, error) {
		calls++
		return &widget{ID: 1, Name: "first"}, nil
	}

	var got widget
	require.NoError(t, oc.Get(ctx, "widget:1", &got, load))
	assert.Equal(t, "first", got.Name)
	assert.Equal(t, 1, calls)

	var again widget
	require.NoError(t, oc.Get(ctx, "widget:1", &again, load))
	assert.Equal(t, "first", again.Name)
	assert.Equal(t, 1, calls)
}

func TestObjectCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	oc := NewObjectCache(NewMemoryStore(), time.Hour, zap.NewNop())

	name := "first"
	load := func(ctx context.Context) (interface{}, error) {
		return &widget{ID: 1, Name: name}, nil
	}

	var got widget
	require.NoError(t, oc.Get(ctx, "widget:1", &got, load))

	// The entity changes; without invalidation the cache would keep serving
	// the old version.
	name = "second"
	require.NoError(t, oc.Get(ctx, "widget:1", &got, load))
	assert.Equal(t, "first", got.Name)

	require.NoError(t, oc.Invalidate(ctx, "widget:1"))
	require.NoError(t, oc.Get(ctx, "widget:1", &got, load))
	assert.Equal(t, "second", got.Name)
}

func TestObjectCacheCorruptEntryReloads(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	oc := NewObjectCache(store, time.Hour, zap.NewNop())

	require.NoError(t, store.Set(ctx, "widget:1", "{not json", time.Hour))

	var got widget
	err := oc.Get(ctx, "widget:1", &got, func(ctx context.Context) (interface{}, error) {
		return &widget{ID: 1, Name: "reloaded"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "reloaded", got.Name)
}

func TestObjectCacheZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	oc := NewObjectCache(store, 0, zap.NewNop())

	var got widget
	require.NoError(t, oc.Get(ctx, "followings:1", &got, func(ctx context.Context) (interface{}, error) {
		return &widget{ID: 1, Name: "set"}, nil
	}))

	_, ok, err := store.Get(ctx, "followings:1")
	require.NoError(t, err)
	assert.True(t, ok)
}
