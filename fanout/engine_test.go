package fanout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chirper/errs"
)

type fakeGraph struct {
	ids []int
}

func (g *fakeGraph) FollowerIDs(ctx context.Context, userID int) ([]int, error) {
	return g.ids, nil
}

type recordingFeedStore struct {
	batches [][]int
	err     error
}

func (s *recordingFeedStore) CreateEntries(ctx context.Context, tweetID int, createdAt time.Time, ownerIDs []int) error {
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, ownerIDs)
	return nil
}

type recordingQueue struct {
	tasks []*asynq.Task
	err   error
}

func (q *recordingQueue) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func followerIDs(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i + 100
	}
	return ids
}

func TestPublishAtThresholdStaysSynchronous(t *testing.T) {
	feeds := &recordingFeedStore{}
	queue := &recordingQueue{}
	engine := NewEngine(&fakeGraph{ids: followerIDs(SyncThreshold)}, feeds, queue, zap.NewNop())

	result, err := engine.Publish(context.Background(), 1, 42, time.Now())
	require.NoError(t, err)
	assert.Equal(t, SyncThreshold, result.Followers)
	assert.Zero(t, result.Batches)
	assert.Empty(t, queue.tasks)

	// The author's entry first, then one inline batch with all followers.
	require.Len(t, feeds.batches, 2)
	assert.Equal(t, []int{42}, feeds.batches[0])
	assert.Len(t, feeds.batches[1], SyncThreshold)
}

func TestPublishAboveThresholdEnqueuesBatches(t *testing.T) {
	feeds := &recordingFeedStore{}
	queue := &recordingQueue{}
	engine := NewEngine(&fakeGraph{ids: followerIDs(45)}, feeds, queue, zap.NewNop())

	result, err := engine.Publish(context.Background(), 1, 42, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 45, result.Followers)
	assert.Equal(t, 3, result.Batches)

	// Only the author's entry is written synchronously.
	require.Len(t, feeds.batches, 1)
	assert.Equal(t, []int{42}, feeds.batches[0])
	require.Len(t, queue.tasks, 3)
	for _, task := range queue.tasks {
		assert.Equal(t, TypeBatch, task.Type())
	}
}

func TestPublishNoFollowers(t *testing.T) {
	feeds := &recordingFeedStore{}
	queue := &recordingQueue{}
	engine := NewEngine(&fakeGraph{}, feeds, queue, zap.NewNop())

	result, err := engine.Publish(context.Background(), 1, 42, time.Now())
	require.NoError(t, err)
	assert.Zero(t, result.Followers)

	// The author still sees their own tweet.
	require.Len(t, feeds.batches, 1)
	assert.Equal(t, []int{42}, feeds.batches[0])
}

func TestPublishEnqueueFailure(t *testing.T) {
	feeds := &recordingFeedStore{}
	queue := &recordingQueue{err: errors.New("redis down")}
	engine := NewEngine(&fakeGraph{ids: followerIDs(25)}, feeds, queue, zap.NewNop())

	_, err := engine.Publish(context.Background(), 1, 42, time.Now())
	require.Error(t, err)
	assert.Equal(t, errs.EUNAVAILABLE, errs.ErrorCode(err))
}

func TestHandleBatchTask(t *testing.T) {
	feeds := &recordingFeedStore{}
	engine := NewEngine(&fakeGraph{}, feeds, &recordingQueue{}, zap.NewNop())

	task, err := NewBatchTask(7, time.Now(), []int{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, engine.HandleBatchTask(context.Background(), task))
	require.Len(t, feeds.batches, 1)
	assert.Equal(t, []int{1, 2, 3}, feeds.batches[0])
}

func TestHandleBatchTaskBadPayloadSkipsRetry(t *testing.T) {
	engine := NewEngine(&fakeGraph{}, &recordingFeedStore{}, &recordingQueue{}, zap.NewNop())

	task := asynq.NewTask(TypeBatch, []byte("{broken"))
	err := engine.HandleBatchTask(context.Background(), task)
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleBatchTaskStorageFailureRetries(t *testing.T) {
	feeds := &recordingFeedStore{err: errors.New("db down")}
	engine := NewEngine(&fakeGraph{}, feeds, &recordingQueue{}, zap.NewNop())

	task, err := NewBatchTask(7, time.Now(), []int{1})
	require.NoError(t, err)
	err = engine.HandleBatchTask(context.Background(), task)
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}
