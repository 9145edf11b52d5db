// Package crud implements the application services on top of gorm, wired to
// the caching subsystem and the fanout engine. Each service follows the
// same shape: a validator struct runs checks on incoming data and embeds a
// gorm struct that talks to the database and the caches.
package crud

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"chirper/cache"
	"chirper/fanout"
)

// A ServicesConfig is any function that configures a part of the Services
// container. It wraps the constructor of a service so that main can compose
// exactly the services it needs with functional options.
type ServicesConfig func(*Services) error

// Services is a container holding all application services. They share the
// database connection, the cache store and the logger provided here.
// Configs that depend on other services (WithFanout on WithFollow and
// WithNewsFeed, WithTweet on WithFanout) must be passed after them.
type Services struct {
	db     *gorm.DB
	logger *zap.Logger

	// Shared cache tiers, built once from the injected store.
	lists      *cache.ListCache
	counters   *cache.CounterCache
	objects    *cache.ObjectCache
	followings *cache.ObjectCache

	User         *UserService
	Tweet        *TweetService
	Comment      *CommentService
	Like         *LikeService
	Follow       *FollowService
	NewsFeed     *NewsFeedService
	Notification *NotificationService
	Fanout       *fanout.Engine
}

// NewServices returns a Services container with every service one of the
// passed in configs creates.
func NewServices(db *gorm.DB, store cache.Store, logger *zap.Logger, cfgs ...ServicesConfig) (*Services, error) {
	s := Services{
		db:       db,
		logger:   logger,
		lists:    cache.NewListCache(store, cache.ListLimit, cache.DefaultTTL, logger),
		counters: cache.NewCounterCache(store, cache.DefaultTTL, logger),
		objects:  cache.NewObjectCache(store, cache.DefaultTTL, logger),
		// The followings set has no TTL: stale entries there directly
		// produce wrong has_followed annotations, so it lives until
		// explicitly invalidated.
		followings: cache.NewObjectCache(store, 0, logger),
	}
	for _, cfg := range cfgs {
		if err := cfg(&s); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// WithUser wraps the constructor of UserService.
func WithUser(pepper, hmacKey string) ServicesConfig {
	return func(s *Services) error {
		s.User = NewUserService(s.db, pepper, hmacKey, s.objects, s.logger)
		return nil
	}
}

// WithFollow wraps the constructor of FollowService.
func WithFollow() ServicesConfig {
	return func(s *Services) error {
		s.Follow = NewFollowService(s.db, s.followings, s.logger)
		return nil
	}
}

// WithNewsFeed wraps the constructor of NewsFeedService.
func WithNewsFeed() ServicesConfig {
	return func(s *Services) error {
		s.NewsFeed = NewNewsFeedService(s.db, s.lists, s.objects, s.logger)
		return nil
	}
}

// WithFanout wraps the constructor of the fanout engine. Requires WithFollow
// and WithNewsFeed.
func WithFanout(queue fanout.Enqueuer) ServicesConfig {
	return func(s *Services) error {
		s.Fanout = fanout.NewEngine(s.Follow, s.NewsFeed, queue, s.logger)
		return nil
	}
}

// WithTweet wraps the constructor of TweetService. Requires WithFanout.
func WithTweet() ServicesConfig {
	return func(s *Services) error {
		s.Tweet = NewTweetService(s.db, s.lists, s.counters, s.objects, s.Fanout, s.logger)
		return nil
	}
}

// WithNotification wraps the constructor of NotificationService.
func WithNotification() ServicesConfig {
	return func(s *Services) error {
		s.Notification = NewNotificationService(s.db, s.logger)
		return nil
	}
}

// WithComment wraps the constructor of CommentService. Requires
// WithNotification.
func WithComment() ServicesConfig {
	return func(s *Services) error {
		s.Comment = NewCommentService(s.db, s.counters, s.Notification, s.logger)
		return nil
	}
}

// WithLike wraps the constructor of LikeService. Requires WithNotification.
func WithLike() ServicesConfig {
	return func(s *Services) error {
		s.Like = NewLikeService(s.db, s.counters, s.Notification, s.logger)
		return nil
	}
}
