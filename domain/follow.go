package domain

import (
	"context"
	"time"

	"chirper/pagination"
)

// Follow represents a self-referential many-to-many relationship between two
// users. The FollowerID is the user that follows, the FollowedID the user
// being followed. The edge is directional and unique per pair.
type Follow struct {
	ID         int       `json:"id"`
	FollowerID int       `json:"follower_id" gorm:"notNull;uniqueIndex:idx_follows_pair;index"`
	Follower   User      `json:"follower"`
	FollowedID int       `json:"followed_id" gorm:"notNull;uniqueIndex:idx_follows_pair;index"`
	Followed   User      `json:"followed"`
	CreatedAt  time.Time `json:"created_at"`
}

// FollowService is a set of methods to manipulate and work with the Follow
// model, including the cached following set used for has_followed
// annotations and fanout follower retrieval.
type FollowService interface {
	Create(ctx context.Context, follow *Follow) error
	Delete(ctx context.Context, follow *Follow) error

	// FollowingIDs returns the ids the user follows as a set, read through
	// the follow-graph cache.
	FollowingIDs(ctx context.Context, userID int) (map[int]bool, error)
	HasFollowed(ctx context.Context, fromUserID, toUserID int) (bool, error)

	// FollowerIDs is a single batch query over inbound edges; it is the
	// fanout entry point and deliberately not cached.
	FollowerIDs(ctx context.Context, userID int) ([]int, error)

	FollowersPage(ctx context.Context, userID int, req pagination.PageRequest) (pagination.NumberedPage[Follow], error)
	FollowingsPage(ctx context.Context, userID int, req pagination.PageRequest) (pagination.NumberedPage[Follow], error)
}
