package main

import (
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"chirper/cache"
	"chirper/fanout"
)

// NewCacheStore builds the redis-backed cache store, wrapped in a circuit
// breaker so that a dead redis degrades reads to storage instead of
// hammering a down instance.
func NewCacheStore(cfg RedisConfig) cache.Store {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return cache.NewBreakerStore(cache.NewRedisStore(client))
}

// NewQueueClient builds the asynq client the fanout engine enqueues batch
// tasks on.
func NewQueueClient(cfg RedisConfig) *asynq.Client {
	return asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewQueueServer builds the asynq worker server. The newsfeed queue gets
// most of the weight so that fanout batches don't starve behind default
// work.
func NewQueueServer(cfg RedisConfig) *asynq.Server {
	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				fanout.QueueNewsfeed: 6,
				"default":            4,
			},
		},
	)
}
