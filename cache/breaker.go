package cache

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"chirper/errs"
)

// breakerStore decorates a Store with a circuit breaker. When the cache
// store is down, every request would otherwise pay a full connect timeout
// before falling back to storage; an open breaker turns that into an
// immediate EUNAVAILABLE so the fallback path stays fast.
type breakerStore struct {
	inner Store
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerStore wraps a Store in a circuit breaker. The breaker opens
// after five consecutive failures and probes again after ten seconds.
func NewBreakerStore(inner Store) Store {
	return &breakerStore{
		inner: inner,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "cache-store",
			Timeout: 10 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

func (s *breakerStore) execute(op func() (interface{}, error)) (interface{}, error) {
	result, err := s.cb.Execute(op)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, errs.Errorf(errs.EUNAVAILABLE, "Cache store unavailable.")
	}
	return result, err
}

type getResult struct {
	value string
	ok    bool
}

func (s *breakerStore) Get(ctx context.Context, key string) (string, bool, error) {
	result, err := s.execute(func() (interface{}, error) {
		value, ok, err := s.inner.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		return getResult{value: value, ok: ok}, nil
	})
	if err != nil {
		return "", false, err
	}
	r := result.(getResult)
	return r.value, r.ok, nil
}

func (s *breakerStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := s.execute(func() (interface{}, error) {
		return nil, s.inner.Set(ctx, key, value, ttl)
	})
	return err
}

func (s *breakerStore) Delete(ctx context.Context, key string) error {
	_, err := s.execute(func() (interface{}, error) {
		return nil, s.inner.Delete(ctx, key)
	})
	return err
}

func (s *breakerStore) Exists(ctx context.Context, key string) (bool, error) {
	result, err := s.execute(func() (interface{}, error) {
		return s.inner.Exists(ctx, key)
	})
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}

func (s *breakerStore) Incr(ctx context.Context, key string) (int64, error) {
	result, err := s.execute(func() (interface{}, error) {
		return s.inner.Incr(ctx, key)
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

func (s *breakerStore) Decr(ctx context.Context, key string) (int64, error) {
	result, err := s.execute(func() (interface{}, error) {
		return s.inner.Decr(ctx, key)
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

func (s *breakerStore) LPush(ctx context.Context, key string, values ...string) error {
	_, err := s.execute(func() (interface{}, error) {
		return nil, s.inner.LPush(ctx, key, values...)
	})
	return err
}

func (s *breakerStore) RPush(ctx context.Context, key string, values ...string) error {
	_, err := s.execute(func() (interface{}, error) {
		return nil, s.inner.RPush(ctx, key, values...)
	})
	return err
}

func (s *breakerStore) LTrim(ctx context.Context, key string, start, stop int64) error {
	_, err := s.execute(func() (interface{}, error) {
		return nil, s.inner.LTrim(ctx, key, start, stop)
	})
	return err
}

func (s *breakerStore) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	result, err := s.execute(func() (interface{}, error) {
		return s.inner.LRange(ctx, key, start, stop)
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

func (s *breakerStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	_, err := s.execute(func() (interface{}, error) {
		return nil, s.inner.Expire(ctx, key, ttl)
	})
	return err
}
