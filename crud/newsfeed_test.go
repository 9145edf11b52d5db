package crud

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chirper/domain"
	"chirper/fanout"
	"chirper/pagination"
)

func TestPublishSmallFanoutRunsInline(t *testing.T) {
	s, queue := testServices(t)
	ctx := context.Background()

	author := createUser(t, s, "author@example.com")
	var followers []*domain.User
	for i := 0; i < 3; i++ {
		fan := seedUser(t, s, i)
		followers = append(followers, fan)
		require.NoError(t, s.Follow.Create(ctx, &domain.Follow{FollowerID: fan.ID, FollowedID: author.ID}))
	}

	tweet := createTweet(t, s, author.ID, "small fanout")

	// Author plus three followers, no queue involvement.
	assert.Zero(t, queue.tasks)
	var entries int64
	require.NoError(t, s.db.Model(&domain.NewsFeed{}).Where("tweet_id = ?", tweet.ID).Count(&entries).Error)
	assert.Equal(t, int64(4), entries)

	page, err := s.NewsFeed.FeedPage(ctx, followers[0].ID, pagination.Cursor{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, tweet.ID, page.Items[0].TweetID)
	assert.Equal(t, "small fanout", page.Items[0].Tweet.Content)
}

func TestPublishLargeFanoutBatches(t *testing.T) {
	s, queue := testServices(t)
	ctx := context.Background()

	author := createUser(t, s, "author@example.com")
	for i := 0; i < fanout.SyncThreshold+5; i++ {
		fan := seedUser(t, s, i)
		require.NoError(t, s.Follow.Create(ctx, &domain.Follow{FollowerID: fan.ID, FollowedID: author.ID}))
	}

	tweet := createTweet(t, s, author.ID, "large fanout")

	// 25 followers split into a full batch and a remainder batch.
	assert.Equal(t, 2, queue.tasks)
	var entries int64
	require.NoError(t, s.db.Model(&domain.NewsFeed{}).Where("tweet_id = ?", tweet.ID).Count(&entries).Error)
	assert.Equal(t, int64(fanout.SyncThreshold+6), entries)
}

func TestPublishPutsTweetInAuthorFeedFirst(t *testing.T) {
	s, _ := testServices(t)
	ctx := context.Background()

	author := createUser(t, s, "author@example.com")
	createTweet(t, s, author.ID, "older")
	newer := createTweet(t, s, author.ID, "newer")

	page, err := s.NewsFeed.FeedPage(ctx, author.ID, pagination.Cursor{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, newer.ID, page.Items[0].TweetID)
}

func TestCreateEntriesIsIdempotent(t *testing.T) {
	s, _ := testServices(t)
	ctx := context.Background()

	author := createUser(t, s, "author@example.com")
	fan := seedUser(t, s, 0)
	tweet := createTweet(t, s, author.ID, "delivered twice")

	// A redelivered batch must not produce a second feed entry.
	require.NoError(t, s.NewsFeed.CreateEntries(ctx, tweet.ID, tweet.CreatedAt, []int{fan.ID}))
	require.NoError(t, s.NewsFeed.CreateEntries(ctx, tweet.ID, tweet.CreatedAt, []int{fan.ID}))

	var entries int64
	require.NoError(t, s.db.Model(&domain.NewsFeed{}).
		Where("user_id = ? AND tweet_id = ?", fan.ID, tweet.ID).
		Count(&entries).Error)
	assert.Equal(t, int64(1), entries)
}

func TestRedeliveryDoesNotDuplicateWarmFeed(t *testing.T) {
	s, _ := testServices(t)
	ctx := context.Background()

	author := createUser(t, s, "author@example.com")
	fan := seedUser(t, s, 0)

	// Warm the fan's cached feed with an earlier tweet.
	first := createTweet(t, s, author.ID, "first")
	require.NoError(t, s.NewsFeed.CreateEntries(ctx, first.ID, first.CreatedAt, []int{fan.ID}))
	_, err := s.NewsFeed.FeedPage(ctx, fan.ID, pagination.Cursor{})
	require.NoError(t, err)

	// Deliver the same batch twice onto the warm feed.
	second := createTweet(t, s, author.ID, "second")
	require.NoError(t, s.NewsFeed.CreateEntries(ctx, second.ID, second.CreatedAt, []int{fan.ID}))
	require.NoError(t, s.NewsFeed.CreateEntries(ctx, second.ID, second.CreatedAt, []int{fan.ID}))

	page, err := s.NewsFeed.FeedPage(ctx, fan.ID, pagination.Cursor{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	seen := 0
	for _, entry := range page.Items {
		if entry.TweetID == second.ID {
			seen++
		}
	}
	assert.Equal(t, 1, seen)
}

func TestPartialBatchOverlapKeepsFeedsConverged(t *testing.T) {
	s, _ := testServices(t)
	ctx := context.Background()

	author := createUser(t, s, "author@example.com")
	early := seedUser(t, s, 0)
	late := seedUser(t, s, 1)
	tweet := createTweet(t, s, author.ID, "overlapping batches")

	// One owner already received the tweet, then a retried batch redelivers
	// it together with an owner who hasn't.
	require.NoError(t, s.NewsFeed.CreateEntries(ctx, tweet.ID, tweet.CreatedAt, []int{early.ID}))
	_, err := s.NewsFeed.FeedPage(ctx, early.ID, pagination.Cursor{})
	require.NoError(t, err)
	require.NoError(t, s.NewsFeed.CreateEntries(ctx, tweet.ID, tweet.CreatedAt, []int{early.ID, late.ID}))

	// Both owners end with exactly one consumable entry for the tweet.
	for _, id := range []int{early.ID, late.ID} {
		page, err := s.NewsFeed.FeedPage(ctx, id, pagination.Cursor{})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, tweet.ID, page.Items[0].TweetID)
	}
}

func TestFeedEntriesKeepTweetCreationTime(t *testing.T) {
	s, _ := testServices(t)
	ctx := context.Background()

	author := createUser(t, s, "author@example.com")
	fan := seedUser(t, s, 0)
	tweet := createTweet(t, s, author.ID, "late delivery")

	// Deliver long after creation; the entry still sorts by the tweet's
	// creation time.
	require.NoError(t, s.NewsFeed.CreateEntries(ctx, tweet.ID, tweet.CreatedAt, []int{fan.ID}))

	var entry domain.NewsFeed
	require.NoError(t, s.db.First(&entry, "user_id = ? AND tweet_id = ?", fan.ID, tweet.ID).Error)
	assert.WithinDuration(t, tweet.CreatedAt, entry.CreatedAt, time.Second)
}

func TestFeedPageEndToEnd(t *testing.T) {
	s, _ := testServices(t)
	ctx := context.Background()

	author := createUser(t, s, "author@example.com")
	reader := createUser(t, s, "reader@example.com")
	require.NoError(t, s.Follow.Create(ctx, &domain.Follow{FollowerID: reader.ID, FollowedID: author.ID}))

	for i := 0; i < 25; i++ {
		createTweet(t, s, author.ID, "feed tweet")
	}

	first, err := s.NewsFeed.FeedPage(ctx, reader.ID, pagination.Cursor{})
	require.NoError(t, err)
	require.Len(t, first.Items, pagination.EndlessPageSize)
	assert.True(t, first.HasNextPage)

	// Every entry comes back hydrated with its tweet and author.
	for _, entry := range first.Items {
		assert.Equal(t, author.ID, entry.Tweet.UserID)
		assert.Equal(t, author.Email, entry.Tweet.User.Email)
	}

	before := first.Items[len(first.Items)-1].CreatedAt
	second, err := s.NewsFeed.FeedPage(ctx, reader.ID, pagination.Cursor{Before: &before})
	require.NoError(t, err)
	assert.Len(t, second.Items, 5)
	assert.False(t, second.HasNextPage)
}
