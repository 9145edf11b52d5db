// Package cache holds the caching subsystem: the key/value Store abstraction
// with its redis and in-memory backends, and the three cache tiers built on
// top of it (ListCache, CounterCache, ObjectCache).
//
// Everything here is an optimization, never a dependency for correctness:
// every cached value is reconstructible from storage, read failures fall
// back to storage, and write failures are logged and swallowed by callers.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store abstracts the external key/value store. It is injected explicitly
// into every caching component; there is no ambient singleton client.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)

	Incr(ctx context.Context, key string) (int64, error)
	Decr(ctx context.Context, key string) (int64, error)

	LPush(ctx context.Context, key string, values ...string) error
	RPush(ctx context.Context, key string, values ...string) error
	LTrim(ctx context.Context, key string, start, stop int64) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// redisStore implements Store on a redis client.
type redisStore struct {
	client *redis.Client
}

// NewRedisStore returns a Store backed by the given redis client. The caller
// owns the client's lifecycle.
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *redisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *redisStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.client.Incr(ctx, key).Result()
}

func (s *redisStore) Decr(ctx context.Context, key string) (int64, error) {
	return s.client.Decr(ctx, key).Result()
}

func (s *redisStore) LPush(ctx context.Context, key string, values ...string) error {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return s.client.LPush(ctx, key, args...).Err()
}

func (s *redisStore) RPush(ctx context.Context, key string, values ...string) error {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return s.client.RPush(ctx, key, args...).Err()
}

func (s *redisStore) LTrim(ctx context.Context, key string, start, stop int64) error {
	return s.client.LTrim(ctx, key, start, stop).Err()
}

func (s *redisStore) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return s.client.LRange(ctx, key, start, stop).Result()
}

func (s *redisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Expire(ctx, key, ttl).Err()
}
