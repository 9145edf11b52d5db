package domain

import (
	"context"
	"time"
)

// Like target types.
const (
	LikeTargetTweet   = "tweet"
	LikeTargetComment = "comment"
)

// Like represents a user liking a tweet or a comment. The composite unique
// index makes a like idempotent at the storage layer: a user can like a given
// target at most once, and re-liking is a no-op rather than an error.
type Like struct {
	ID         int    `json:"id"`
	UserID     int    `json:"user_id" gorm:"notNull;uniqueIndex:idx_likes_user_target"`
	TargetType string `json:"target_type" gorm:"notNull;uniqueIndex:idx_likes_user_target;index:idx_likes_target_created"`
	TargetID   int    `json:"target_id" gorm:"notNull;uniqueIndex:idx_likes_user_target;index:idx_likes_target_created"`

	CreatedAt time.Time `json:"created_at" gorm:"index:idx_likes_target_created"`
}

// LikeService is a set of methods to manipulate and work with the Like model.
type LikeService interface {
	// Create likes a target. Liking an already-liked target succeeds
	// without creating a second row or moving any count.
	Create(ctx context.Context, like *Like) error
	// Delete unlikes a target. Unliking a target that was never liked is a
	// no-op and must not decrement anything.
	Delete(ctx context.Context, like *Like) error
	HasLiked(ctx context.Context, userID int, targetType string, targetID int) (bool, error)
}
