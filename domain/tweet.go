package domain

import (
	"context"
	"time"

	"chirper/pagination"
)

type Tweet struct {
	ID      int    `json:"id"`
	UserID  int    `json:"user_id" gorm:"notNull;index:idx_tweets_user_created"`
	User    User   `json:"user"`
	Content string `json:"content"`

	// Denormalized counts. Eventually consistent with the Like and Comment
	// tables; always updated through an atomic column increment, never
	// read-modify-write.
	LikesCount    int `json:"likes_count" gorm:"notNull;default:0"`
	CommentsCount int `json:"comments_count" gorm:"notNull;default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"index:idx_tweets_user_created"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TweetService is a set of methods to manipulate and work with the Tweet model.
type TweetService interface {
	Create(ctx context.Context, tweet *Tweet) error
	Delete(ctx context.Context, tweet *Tweet) error
	ByID(ctx context.Context, id int) (*Tweet, error)
	// ByUserID serves a user's own tweets, newest first, through the
	// per-user list cache.
	ByUserID(ctx context.Context, userID int, cur pagination.Cursor) (pagination.Page[Tweet], error)
	LikesCount(ctx context.Context, tweetID int) (int64, error)
	CommentsCount(ctx context.Context, tweetID int) (int64, error)
}
