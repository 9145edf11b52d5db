package crud

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"chirper/cache"
	"chirper/domain"
	"chirper/errs"
	"chirper/fanout"
	"chirper/pagination"
)

// TweetService manages Tweets.
// It implements the domain.TweetService interface.
type TweetService struct {
	tweetValidator
}

// tweetValidator runs validations on incoming Tweet data.
// On success, it passes the data on to tweetGorm.
type tweetValidator struct {
	tweetGorm
}

// tweetGorm runs CRUD operations on the database using validated Tweet
// data, keeps the per-user tweet list cache warm, and hands freshly created
// tweets to the fanout engine.
type tweetGorm struct {
	db       *gorm.DB
	lists    *cache.ListCache
	counters *cache.CounterCache
	objects  *cache.ObjectCache
	engine   *fanout.Engine
	logger   *zap.Logger
}

// NewTweetService returns an instance of TweetService.
func NewTweetService(db *gorm.DB, lists *cache.ListCache, counters *cache.CounterCache, objects *cache.ObjectCache, engine *fanout.Engine, logger *zap.Logger) *TweetService {
	return &TweetService{
		tweetValidator{
			tweetGorm{
				db:       db,
				lists:    lists,
				counters: counters,
				objects:  objects,
				engine:   engine,
				logger:   logger,
			},
		},
	}
}

// Ensure the TweetService struct properly implements the domain.TweetService
// interface. If it does not, then this expression becomes invalid and won't
// compile.
var _ domain.TweetService = &TweetService{}

// Create runs validations needed for creating new Tweet database records.
func (tv *tweetValidator) Create(ctx context.Context, tweet *domain.Tweet) error {
	err := runTweetValFns(tweet,
		tv.userIdValid,
		tv.contentMinLength,
		tv.contentMaxLength)
	if err != nil {
		return err
	}
	return tv.tweetGorm.Create(ctx, tweet)
}

// Delete runs validations needed for deleting existing Tweet database records.
func (tv *tweetValidator) Delete(ctx context.Context, tweet *domain.Tweet) error {
	if err := runTweetValFns(tweet, tv.idValid); err != nil {
		return err
	}
	return tv.tweetGorm.Delete(ctx, tweet)
}

// runTweetValFns runs any number of functions of type tweetValFn on the
// passed in Tweet object, stopping at the first error.
func runTweetValFns(tweet *domain.Tweet, fns ...tweetValFn) error {
	for _, fn := range fns {
		if err := fn(tweet); err != nil {
			return err
		}
	}
	return nil
}

type tweetValFn = func(tweet *domain.Tweet) error

func (tv *tweetValidator) userIdValid(tweet *domain.Tweet) error {
	if tweet.UserID <= 0 {
		return errs.Errorf(errs.EINVALID, "A user ID is required.")
	}
	return nil
}

func (tv *tweetValidator) contentMinLength(tweet *domain.Tweet) error {
	if strings.TrimSpace(tweet.Content) == "" {
		return errs.Errorf(errs.EINVALID, "Tweet content must not be empty.")
	}
	return nil
}

func (tv *tweetValidator) contentMaxLength(tweet *domain.Tweet) error {
	if utf8.RuneCountInString(tweet.Content) > 280 {
		return errs.Errorf(errs.EINVALID, "Tweet content max length is 280 characters.")
	}
	return nil
}

func (tv *tweetValidator) idValid(tweet *domain.Tweet) error {
	if tweet.ID <= 0 {
		return errs.Errorf(errs.EINVALID, "Tweet ID is invalid.")
	}
	return nil
}

// Create stores the tweet, pushes it onto the author's cached tweet list,
// and publishes it into follower feeds. A failed list-cache push is logged
// and swallowed; a failed fanout scheduling is surfaced because a large
// fanout has no synchronous fallback.
func (tg *tweetGorm) Create(ctx context.Context, tweet *domain.Tweet) error {
	if err := tg.db.WithContext(ctx).Create(tweet).Error; err != nil {
		return err
	}
	if err := tg.db.WithContext(ctx).Preload("User").First(tweet, "id = ?", tweet.ID).Error; err != nil {
		return err
	}

	if raw, err := json.Marshal(tweet); err == nil {
		key := cache.UserTweetsKey(tweet.UserID)
		if err := tg.lists.PushFront(ctx, key, string(raw), tg.tweetSource(tweet.UserID)); err != nil {
			tg.logger.Warn("tweet list cache push failed", zap.Int("user_id", tweet.UserID), zap.Error(err))
		}
	}

	result, err := tg.engine.Publish(ctx, tweet.ID, tweet.UserID, tweet.CreatedAt)
	if err != nil {
		return err
	}
	tg.logger.Info("tweet published",
		zap.Int("tweet_id", tweet.ID),
		zap.Int("followers", result.Followers),
		zap.Int("batches", result.Batches))
	return nil
}

// Delete removes the tweet, its comments, likes and feed entries, and
// invalidates every cache entry derived from it. The author's list cache is
// dropped entirely; it repopulates from storage on the next read. Feed list
// caches of followers are left to the TTL self-heal, with feed hydration
// skipping entries whose tweet is gone.
func (tg *tweetGorm) Delete(ctx context.Context, tweet *domain.Tweet) error {
	existing, err := tg.ByID(ctx, tweet.ID)
	if err != nil {
		return err
	}
	if existing.UserID != tweet.UserID {
		return errs.Errorf(errs.EINVALID, "You can only delete your own tweets.")
	}

	db := tg.db.WithContext(ctx)
	if err := db.Delete(&domain.Tweet{}, "id = ?", tweet.ID).Error; err != nil {
		return err
	}
	if err := db.Delete(&domain.Comment{}, "tweet_id = ?", tweet.ID).Error; err != nil {
		return err
	}
	if err := db.Delete(&domain.Like{}, "target_type = ? AND target_id = ?", domain.LikeTargetTweet, tweet.ID).Error; err != nil {
		return err
	}
	if err := db.Delete(&domain.NewsFeed{}, "tweet_id = ?", tweet.ID).Error; err != nil {
		return err
	}

	invalidations := []struct {
		key string
		fn  func(context.Context, string) error
	}{
		{cache.TweetKey(tweet.ID), tg.objects.Invalidate},
		{cache.CountKey("Tweet", "likes_count", tweet.ID), tg.counters.Invalidate},
		{cache.CountKey("Tweet", "comments_count", tweet.ID), tg.counters.Invalidate},
		{cache.UserTweetsKey(existing.UserID), tg.lists.Invalidate},
	}
	for _, inv := range invalidations {
		if err := inv.fn(ctx, inv.key); err != nil {
			tg.logger.Warn("tweet cache invalidate failed", zap.String("key", inv.key), zap.Error(err))
		}
	}
	return nil
}

// ByID retrieves a single tweet with its author from storage.
func (tg *tweetGorm) ByID(ctx context.Context, id int) (*domain.Tweet, error) {
	var tweet domain.Tweet
	err := tg.db.WithContext(ctx).Preload("User").First(&tweet, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Errorf(errs.ENOTFOUND, "The tweet does not exist.")
		}
		return nil, err
	}
	return &tweet, nil
}

// ByUserID serves a user's tweets newest first through the list cache,
// falling back to storage when the cache is unavailable or cannot prove the
// page complete.
func (tg *tweetGorm) ByUserID(ctx context.Context, userID int, cur pagination.Cursor) (pagination.Page[domain.Tweet], error) {
	raw, err := tg.lists.LoadOrPopulate(ctx, cache.UserTweetsKey(userID), tg.tweetSource(userID))
	if err != nil {
		tg.logger.Warn("tweet list cache read failed", zap.Int("user_id", userID), zap.Error(err))
		return tg.pageFromStorage(ctx, userID, cur)
	}

	tweets := make([]domain.Tweet, 0, len(raw))
	for _, item := range raw {
		var tweet domain.Tweet
		if err := json.Unmarshal([]byte(item), &tweet); err != nil {
			tg.logger.Warn("cached tweet corrupt", zap.Int("user_id", userID))
			return tg.pageFromStorage(ctx, userID, cur)
		}
		tweets = append(tweets, tweet)
	}

	page, complete := pagination.PaginateCached(tweets, tweetCreatedAt, cur, pagination.EndlessPageSize, tg.lists.Limit())
	if complete {
		return page, nil
	}
	return tg.pageFromStorage(ctx, userID, cur)
}

func (tg *tweetGorm) pageFromStorage(ctx context.Context, userID int, cur pagination.Cursor) (pagination.Page[domain.Tweet], error) {
	q := tg.db.WithContext(ctx).Model(&domain.Tweet{}).Preload("User").Where("user_id = ?", userID)
	return pagination.PaginateQuery[domain.Tweet](q, cur, pagination.EndlessPageSize)
}

// tweetSource pulls the newest tweets of a user from storage, serialized
// for the list cache.
func (tg *tweetGorm) tweetSource(userID int) cache.SourceFunc {
	return func(ctx context.Context, limit int) ([]string, error) {
		var tweets []domain.Tweet
		err := tg.db.WithContext(ctx).
			Preload("User").
			Where("user_id = ?", userID).
			Order("created_at desc, id desc").
			Limit(limit).
			Find(&tweets).Error
		if err != nil {
			return nil, err
		}
		items := make([]string, 0, len(tweets))
		for _, tweet := range tweets {
			raw, err := json.Marshal(tweet)
			if err != nil {
				return nil, err
			}
			items = append(items, string(raw))
		}
		return items, nil
	}
}

// LikesCount reads the tweet's like counter through the counter cache.
func (tg *tweetGorm) LikesCount(ctx context.Context, tweetID int) (int64, error) {
	return tg.count(ctx, tweetID, "likes_count")
}

// CommentsCount reads the tweet's comment counter through the counter cache.
func (tg *tweetGorm) CommentsCount(ctx context.Context, tweetID int) (int64, error) {
	return tg.count(ctx, tweetID, "comments_count")
}

func (tg *tweetGorm) count(ctx context.Context, tweetID int, field string) (int64, error) {
	load := func(ctx context.Context) (int64, error) {
		var count int64
		err := tg.db.WithContext(ctx).Model(&domain.Tweet{}).
			Select(field).
			Where("id = ?", tweetID).
			Scan(&count).Error
		return count, err
	}
	value, err := tg.counters.Get(ctx, cache.CountKey("Tweet", field, tweetID), load)
	if err != nil {
		// Cache store trouble: read the column directly.
		tg.logger.Warn("counter cache read failed", zap.Int("tweet_id", tweetID), zap.Error(err))
		return load(ctx)
	}
	return value, nil
}

func tweetCreatedAt(t domain.Tweet) time.Time { return t.CreatedAt }
