package fanout

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// TypeBatch is the task type of one fanout batch.
const TypeBatch = "fanout:newsfeeds:batch"

// QueueNewsfeed is the routing key for fanout batches, kept separate from
// the default queue so a fanout storm can't starve other background work.
const QueueNewsfeed = "newsfeed"

const (
	// BatchSize is how many followers one batch task covers.
	BatchSize = 20
	// SyncThreshold is the follower count up to which fanout completes
	// synchronously in the publishing request. One batch worth of inserts
	// is cheaper inline than a queue round trip.
	SyncThreshold = BatchSize
	// TaskTimeout aborts a batch that runs too long; the batch is
	// idempotent and retried independently.
	TaskTimeout = time.Hour
	// TaskMaxRetry bounds per-batch retries.
	TaskMaxRetry = 10
)

// batchPayload is the wire form of one fanout batch. CreatedAt carries the
// tweet's creation time so feed entries sort correctly no matter when the
// batch runs.
type batchPayload struct {
	TweetID   int       `json:"tweet_id"`
	CreatedAt time.Time `json:"created_at"`
	OwnerIDs  []int     `json:"owner_ids"`
}

// NewBatchTask builds the asynq task for one batch of feed owners.
func NewBatchTask(tweetID int, createdAt time.Time, ownerIDs []int) (*asynq.Task, error) {
	payload, err := json.Marshal(batchPayload{
		TweetID:   tweetID,
		CreatedAt: createdAt,
		OwnerIDs:  ownerIDs,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeBatch, payload), nil
}
