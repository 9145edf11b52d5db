package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chirper/errs"
)

// failingStore fails every operation, standing in for an unreachable redis.
type failingStore struct {
	err   error
	calls int
}

func (s *failingStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.calls++
	return "", false, s.err
}
func (s *failingStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.calls++
	return s.err
}
func (s *failingStore) Delete(ctx context.Context, key string) error { s.calls++; return s.err }
func (s *failingStore) Exists(ctx context.Context, key string) (bool, error) {
	s.calls++
	return false, s.err
}
func (s *failingStore) Incr(ctx context.Context, key string) (int64, error) {
	s.calls++
	return 0, s.err
}
func (s *failingStore) Decr(ctx context.Context, key string) (int64, error) {
	s.calls++
	return 0, s.err
}
func (s *failingStore) LPush(ctx context.Context, key string, values ...string) error {
	s.calls++
	return s.err
}
func (s *failingStore) RPush(ctx context.Context, key string, values ...string) error {
	s.calls++
	return s.err
}
func (s *failingStore) LTrim(ctx context.Context, key string, start, stop int64) error {
	s.calls++
	return s.err
}
func (s *failingStore) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	s.calls++
	return nil, s.err
}
func (s *failingStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	s.calls++
	return s.err
}

func TestBreakerPassesThroughWhenHealthy(t *testing.T) {
	ctx := context.Background()
	store := NewBreakerStore(NewMemoryStore())

	require.NoError(t, store.Set(ctx, "k", "v", time.Hour))
	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", value)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	ctx := context.Background()
	inner := &failingStore{err: errors.New("connection refused")}
	store := NewBreakerStore(inner)

	// The first failures reach the inner store and return its error.
	for i := 0; i < 5; i++ {
		_, _, err := store.Get(ctx, "k")
		require.Error(t, err)
		assert.NotEqual(t, errs.EUNAVAILABLE, errs.ErrorCode(err))
	}

	// Then the breaker opens: calls fail fast without touching the store.
	callsWhenOpened := inner.calls
	_, _, err := store.Get(ctx, "k")
	require.Error(t, err)
	assert.Equal(t, errs.EUNAVAILABLE, errs.ErrorCode(err))
	assert.Equal(t, callsWhenOpened, inner.calls)
}
