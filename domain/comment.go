package domain

import (
	"context"
	"time"
)

// Comment is a user's comment under a tweet. Creating or deleting one moves
// the tweet's comments_count; editing one does not.
type Comment struct {
	ID      int    `json:"id"`
	UserID  int    `json:"user_id" gorm:"notNull;index"`
	User    User   `json:"user"`
	TweetID int    `json:"tweet_id" gorm:"notNull;index:idx_comments_tweet_created"`
	Content string `json:"content"`

	LikesCount int `json:"likes_count" gorm:"notNull;default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"index:idx_comments_tweet_created"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CommentService is a set of methods to manipulate and work with the Comment model.
type CommentService interface {
	Create(ctx context.Context, comment *Comment) error
	Update(ctx context.Context, id int, userID int, content string) (*Comment, error)
	Delete(ctx context.Context, id int, userID int) error
	ByTweetID(ctx context.Context, tweetID int) ([]Comment, error)
}
