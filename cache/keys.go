package cache

import "fmt"

// Key patterns for everything the core caches.
//
// There is deliberately no followers:<id> key: the inbound edge set can be
// unbounded (millions of followers) and churns on every follow/unfollow, so
// followers are only ever served as pages straight from storage.

// UserKey caches a single user object.
func UserKey(userID int) string {
	return fmt.Sprintf("user:%d", userID)
}

// ProfileKey caches a user's profile object.
func ProfileKey(userID int) string {
	return fmt.Sprintf("userprofile:%d", userID)
}

// FollowingsKey caches the set of ids a user follows.
func FollowingsKey(userID int) string {
	return fmt.Sprintf("followings:%d", userID)
}

// TweetKey caches a single tweet object.
func TweetKey(tweetID int) string {
	return fmt.Sprintf("tweet:%d", tweetID)
}

// UserTweetsKey caches the capped list of a user's own tweets.
func UserTweetsKey(userID int) string {
	return fmt.Sprintf("tweets:%d", userID)
}

// NewsfeedsKey caches the capped list of a user's feed entries.
func NewsfeedsKey(userID int) string {
	return fmt.Sprintf("newsfeeds:%d", userID)
}

// CountKey caches a denormalized counter, e.g. "Tweet.likes_count:42".
func CountKey(model, field string, id int) string {
	return fmt.Sprintf("%s.%s:%d", model, field, id)
}
