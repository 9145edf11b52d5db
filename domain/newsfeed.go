package domain

import (
	"context"
	"time"

	"chirper/pagination"
)

// NewsFeed is a feed-membership record: the tweet is visible in the feed of
// UserID. CreatedAt carries the tweet's creation time, not the insertion
// time, because feed ordering sorts on it and fanout may run long after the
// tweet was created. A tweet appears at most once per owner, enforced by the
// composite unique index, which is what makes fanout retries safe.
type NewsFeed struct {
	ID      int   `json:"id"`
	UserID  int   `json:"user_id" gorm:"notNull;uniqueIndex:idx_newsfeeds_user_tweet;index:idx_newsfeeds_user_created"`
	TweetID int   `json:"tweet_id" gorm:"notNull;uniqueIndex:idx_newsfeeds_user_tweet"`
	Tweet   Tweet `json:"tweet"`

	CreatedAt time.Time `json:"created_at" gorm:"index:idx_newsfeeds_user_created"`
}

// NewsFeedService serves a user's feed through the list cache.
type NewsFeedService interface {
	FeedPage(ctx context.Context, userID int, cur pagination.Cursor) (pagination.Page[NewsFeed], error)
}
