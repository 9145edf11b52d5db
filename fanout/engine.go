// Package fanout replicates a newly created tweet into every follower's
// feed: synchronously for small follower sets, via batched queue tasks for
// large ones. Delivery is at least once; the feed entry uniqueness
// constraint turns duplicate deliveries into no-ops, so batches can be
// retried independently without re-fanning-out completed ones.
package fanout

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"chirper/errs"
)

// FollowerGraph retrieves a user's follower ids in one batch query.
type FollowerGraph interface {
	FollowerIDs(ctx context.Context, userID int) ([]int, error)
}

// FeedStore writes feed-membership records: one bulk insert for the given
// owners plus a cache push per affected owner's feed list. Implementations
// must skip rows that already exist rather than fail the batch.
type FeedStore interface {
	CreateEntries(ctx context.Context, tweetID int, createdAt time.Time, ownerIDs []int) error
}

// Enqueuer is the slice of the task-queue client the engine needs.
// *asynq.Client satisfies it.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Result reports what a publish did, for monitoring and tests. Batches is
// zero when the fanout completed synchronously.
type Result struct {
	Followers int `json:"followers"`
	Batches   int `json:"batches"`
}

// Engine drives the fanout pipeline.
type Engine struct {
	graph     FollowerGraph
	feeds     FeedStore
	queue     Enqueuer
	logger    *zap.Logger
	batchSize int
	threshold int
}

func NewEngine(graph FollowerGraph, feeds FeedStore, queue Enqueuer, logger *zap.Logger) *Engine {
	return &Engine{
		graph:     graph,
		feeds:     feeds,
		queue:     queue,
		logger:    logger,
		batchSize: BatchSize,
		threshold: SyncThreshold,
	}
}

// Publish makes tweet visible in its author's and all followers' feeds.
//
// The author's own entry is always written synchronously, so the author
// sees the tweet as soon as the request returns, even with zero followers.
// Follower entries are written inline up to the threshold; beyond it they
// are split into fixed-size batches with one queue task each, and Publish
// returns before the batches complete.
//
// A failed enqueue is the one infrastructure failure that is surfaced
// rather than swallowed: there is no synchronous fallback for a large
// fanout, so the caller has to know.
func (e *Engine) Publish(ctx context.Context, tweetID, authorID int, createdAt time.Time) (*Result, error) {
	if err := e.feeds.CreateEntries(ctx, tweetID, createdAt, []int{authorID}); err != nil {
		return nil, err
	}

	followerIDs, err := e.graph.FollowerIDs(ctx, authorID)
	if err != nil {
		return nil, err
	}
	result := &Result{Followers: len(followerIDs)}

	if len(followerIDs) <= e.threshold {
		if len(followerIDs) > 0 {
			if err := e.feeds.CreateEntries(ctx, tweetID, createdAt, followerIDs); err != nil {
				return nil, err
			}
		}
		e.logger.Info("newsfeeds fanned out synchronously",
			zap.Int("tweet_id", tweetID),
			zap.Int("followers", result.Followers))
		return result, nil
	}

	for start := 0; start < len(followerIDs); start += e.batchSize {
		end := start + e.batchSize
		if end > len(followerIDs) {
			end = len(followerIDs)
		}
		task, err := NewBatchTask(tweetID, createdAt, followerIDs[start:end])
		if err != nil {
			return nil, err
		}
		_, err = e.queue.EnqueueContext(ctx, task,
			asynq.Queue(QueueNewsfeed),
			asynq.Timeout(TaskTimeout),
			asynq.MaxRetry(TaskMaxRetry),
		)
		if err != nil {
			e.logger.Error("fanout batch enqueue failed",
				zap.Int("tweet_id", tweetID), zap.Error(err))
			return nil, errs.Errorf(errs.EUNAVAILABLE, "Could not schedule feed fanout.")
		}
		result.Batches++
	}

	e.logger.Info(fmt.Sprintf("%d newsfeeds going to fanout, %d batches created",
		result.Followers, result.Batches),
		zap.Int("tweet_id", tweetID))
	return result, nil
}

// HandleBatchTask processes one fanout batch task. Malformed payloads skip
// retry; storage failures are returned as-is so the queue retries the batch.
func (e *Engine) HandleBatchTask(ctx context.Context, task *asynq.Task) error {
	var payload batchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal fanout batch payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := e.feeds.CreateEntries(ctx, payload.TweetID, payload.CreatedAt, payload.OwnerIDs); err != nil {
		return err
	}
	e.logger.Info("fanout batch done",
		zap.Int("tweet_id", payload.TweetID),
		zap.Int("owners", len(payload.OwnerIDs)))
	return nil
}

// RegisterHandlers wires the engine's task handlers into an asynq mux.
func (e *Engine) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeBatch, e.HandleBatchTask)
}
