package crud

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chirper/domain"
	"chirper/errs"
)

func TestLikeLifecycle(t *testing.T) {
	s, _ := testServices(t)
	ctx := context.Background()

	author := createUser(t, s, "author@example.com")
	fan := createUser(t, s, "fan@example.com")
	tweet := createTweet(t, s, author.ID, "like me")

	like := &domain.Like{UserID: fan.ID, TargetType: domain.LikeTargetTweet, TargetID: tweet.ID}
	require.NoError(t, s.Like.Create(ctx, like))

	count, err := s.Tweet.LikesCount(ctx, tweet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	hasLiked, err := s.Like.HasLiked(ctx, fan.ID, domain.LikeTargetTweet, tweet.ID)
	require.NoError(t, err)
	assert.True(t, hasLiked)

	// Unlike, then like again: the count moves down and back up.
	require.NoError(t, s.Like.Delete(ctx, &domain.Like{UserID: fan.ID, TargetType: domain.LikeTargetTweet, TargetID: tweet.ID}))
	count, err = s.Tweet.LikesCount(ctx, tweet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	require.NoError(t, s.Like.Create(ctx, &domain.Like{UserID: fan.ID, TargetType: domain.LikeTargetTweet, TargetID: tweet.ID}))
	count, err = s.Tweet.LikesCount(ctx, tweet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestLikeTwiceIsNoOp(t *testing.T) {
	s, _ := testServices(t)
	ctx := context.Background()

	author := createUser(t, s, "author@example.com")
	fan := createUser(t, s, "fan@example.com")
	tweet := createTweet(t, s, author.ID, "like me once")

	require.NoError(t, s.Like.Create(ctx, &domain.Like{UserID: fan.ID, TargetType: domain.LikeTargetTweet, TargetID: tweet.ID}))
	require.NoError(t, s.Like.Create(ctx, &domain.Like{UserID: fan.ID, TargetType: domain.LikeTargetTweet, TargetID: tweet.ID}))

	var rows int64
	require.NoError(t, s.db.Model(&domain.Like{}).Where("target_id = ?", tweet.ID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	count, err := s.Tweet.LikesCount(ctx, tweet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUnlikeNeverLikedIsNoOp(t *testing.T) {
	s, _ := testServices(t)
	ctx := context.Background()

	author := createUser(t, s, "author@example.com")
	fan := createUser(t, s, "fan@example.com")
	tweet := createTweet(t, s, author.ID, "never liked")

	require.NoError(t, s.Like.Delete(ctx, &domain.Like{UserID: fan.ID, TargetType: domain.LikeTargetTweet, TargetID: tweet.ID}))

	count, err := s.Tweet.LikesCount(ctx, tweet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestLikeComment(t *testing.T) {
	s, _ := testServices(t)
	ctx := context.Background()

	author := createUser(t, s, "author@example.com")
	fan := createUser(t, s, "fan@example.com")
	tweet := createTweet(t, s, author.ID, "commented tweet")

	comment := &domain.Comment{UserID: author.ID, TweetID: tweet.ID, Content: "first"}
	require.NoError(t, s.Comment.Create(ctx, comment))

	require.NoError(t, s.Like.Create(ctx, &domain.Like{UserID: fan.ID, TargetType: domain.LikeTargetComment, TargetID: comment.ID}))

	var got domain.Comment
	require.NoError(t, s.db.First(&got, "id = ?", comment.ID).Error)
	assert.Equal(t, 1, got.LikesCount)
}

func TestLikeValidation(t *testing.T) {
	s, _ := testServices(t)
	ctx := context.Background()

	fan := createUser(t, s, "fan@example.com")

	err := s.Like.Create(ctx, &domain.Like{UserID: fan.ID, TargetType: "user", TargetID: 1})
	assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))

	err = s.Like.Create(ctx, &domain.Like{UserID: fan.ID, TargetType: domain.LikeTargetTweet, TargetID: 999})
	assert.Equal(t, errs.ENOTFOUND, errs.ErrorCode(err))
}

func TestLikeNotifiesTargetOwner(t *testing.T) {
	s, _ := testServices(t)
	ctx := context.Background()

	author := createUser(t, s, "author@example.com")
	fan := createUser(t, s, "fan@example.com")
	tweet := createTweet(t, s, author.ID, "notify me")

	require.NoError(t, s.Like.Create(ctx, &domain.Like{UserID: fan.ID, TargetType: domain.LikeTargetTweet, TargetID: tweet.ID}))

	count, err := s.Notification.UnreadCount(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSelfLikeDoesNotNotify(t *testing.T) {
	s, _ := testServices(t)
	ctx := context.Background()

	author := createUser(t, s, "author@example.com")
	tweet := createTweet(t, s, author.ID, "self like")

	require.NoError(t, s.Like.Create(ctx, &domain.Like{UserID: author.ID, TargetType: domain.LikeTargetTweet, TargetID: tweet.ID}))

	count, err := s.Notification.UnreadCount(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
