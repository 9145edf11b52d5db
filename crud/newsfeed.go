package crud

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chirper/cache"
	"chirper/domain"
	"chirper/fanout"
	"chirper/pagination"
)

// NewsFeedService owns feed-membership records and the per-user feed list
// cache. The fanout engine calls CreateEntries (it implements
// fanout.FeedStore); the read path serves pages through the cache with a
// storage fallback. It implements the domain.NewsFeedService interface.
type NewsFeedService struct {
	db      *gorm.DB
	feeds   *cache.ListCache
	objects *cache.ObjectCache
	logger  *zap.Logger
}

// NewNewsFeedService returns an instance of NewsFeedService.
func NewNewsFeedService(db *gorm.DB, feeds *cache.ListCache, objects *cache.ObjectCache, logger *zap.Logger) *NewsFeedService {
	return &NewsFeedService{db: db, feeds: feeds, objects: objects, logger: logger}
}

var _ domain.NewsFeedService = &NewsFeedService{}
var _ fanout.FeedStore = &NewsFeedService{}

// CreateEntries bulk-inserts one feed entry per owner and pushes each onto
// its owner's cached feed list. The insert skips rows that already exist,
// so duplicate publishes and retried batches converge on exactly one entry
// per (owner, tweet). Cache pushes are best effort.
func (s *NewsFeedService) CreateEntries(ctx context.Context, tweetID int, createdAt time.Time, ownerIDs []int) error {
	if len(ownerIDs) == 0 {
		return nil
	}
	entries := make([]domain.NewsFeed, len(ownerIDs))
	for i, ownerID := range ownerIDs {
		entries[i] = domain.NewsFeed{
			UserID:    ownerID,
			TweetID:   tweetID,
			CreatedAt: createdAt,
		}
	}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entries)
	if result.Error != nil {
		return result.Error
	}

	switch result.RowsAffected {
	case int64(len(entries)):
		for _, entry := range entries {
			s.pushToCache(ctx, entry)
		}
	case 0:
		// Every row already existed; the delivery that inserted them
		// already pushed.
	default:
		// A partial conflict. Which rows are the new ones isn't knowable
		// from a bulk insert without relying on driver-specific id
		// backfilling, so drop the affected lists and let them rebuild
		// from storage on the next read.
		for _, entry := range entries {
			s.invalidateFeed(ctx, entry.UserID)
		}
	}
	return nil
}

// invalidateFeed drops an owner's cached feed list. Failures are logged and
// swallowed; the TTL bounds how long the stale list can live.
func (s *NewsFeedService) invalidateFeed(ctx context.Context, ownerID int) {
	if err := s.feeds.Invalidate(ctx, cache.NewsfeedsKey(ownerID)); err != nil {
		s.logger.Warn("feed cache invalidate failed", zap.Int("user_id", ownerID), zap.Error(err))
	}
}

// pushToCache prepends the entry to its owner's cached feed. Failures are
// logged and swallowed: the row is in storage and the list repopulates on
// the next cold read at the latest.
func (s *NewsFeedService) pushToCache(ctx context.Context, entry domain.NewsFeed) {
	raw, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn("feed entry marshal failed", zap.Int("user_id", entry.UserID), zap.Error(err))
		return
	}
	key := cache.NewsfeedsKey(entry.UserID)
	if err := s.feeds.PushFront(ctx, key, string(raw), s.feedSource(entry.UserID)); err != nil {
		s.logger.Warn("feed cache push failed", zap.Int("user_id", entry.UserID), zap.Error(err))
	}
}

// feedSource pulls the newest feed entries of an owner from storage,
// serialized for the list cache.
func (s *NewsFeedService) feedSource(ownerID int) cache.SourceFunc {
	return func(ctx context.Context, limit int) ([]string, error) {
		var entries []domain.NewsFeed
		err := s.db.WithContext(ctx).
			Where("user_id = ?", ownerID).
			Order("created_at desc, id desc").
			Limit(limit).
			Find(&entries).Error
		if err != nil {
			return nil, err
		}
		items := make([]string, 0, len(entries))
		for _, entry := range entries {
			raw, err := json.Marshal(entry)
			if err != nil {
				return nil, err
			}
			items = append(items, string(raw))
		}
		return items, nil
	}
}

// FeedPage serves one endless page of the user's feed. The cached list is
// consulted first; if it cannot prove the page complete (capped cache, no
// next page found) or the cache store is down, the same cursor runs against
// storage. Entries are hydrated with their tweet through the object cache,
// dropping entries whose tweet has been deleted.
func (s *NewsFeedService) FeedPage(ctx context.Context, userID int, cur pagination.Cursor) (pagination.Page[domain.NewsFeed], error) {
	page, err := s.cachedPage(ctx, userID, cur)
	if err != nil {
		return pagination.Page[domain.NewsFeed]{}, err
	}
	return s.hydrate(ctx, page), nil
}

func (s *NewsFeedService) cachedPage(ctx context.Context, userID int, cur pagination.Cursor) (pagination.Page[domain.NewsFeed], error) {
	raw, err := s.feeds.LoadOrPopulate(ctx, cache.NewsfeedsKey(userID), s.feedSource(userID))
	if err != nil {
		s.logger.Warn("feed cache read failed", zap.Int("user_id", userID), zap.Error(err))
		return s.pageFromStorage(ctx, userID, cur)
	}

	entries := make([]domain.NewsFeed, 0, len(raw))
	for _, item := range raw {
		var entry domain.NewsFeed
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			s.logger.Warn("cached feed entry corrupt", zap.Int("user_id", userID))
			return s.pageFromStorage(ctx, userID, cur)
		}
		entries = append(entries, entry)
	}

	page, complete := pagination.PaginateCached(entries, feedCreatedAt, cur, pagination.EndlessPageSize, s.feeds.Limit())
	if complete {
		return page, nil
	}
	return s.pageFromStorage(ctx, userID, cur)
}

func (s *NewsFeedService) pageFromStorage(ctx context.Context, userID int, cur pagination.Cursor) (pagination.Page[domain.NewsFeed], error) {
	q := s.db.WithContext(ctx).Model(&domain.NewsFeed{}).Where("user_id = ?", userID)
	return pagination.PaginateQuery[domain.NewsFeed](q, cur, pagination.EndlessPageSize)
}

// hydrate fills each entry's tweet through the object cache. The cached
// tweet carries its author; deleted tweets drop their entries from the page.
func (s *NewsFeedService) hydrate(ctx context.Context, page pagination.Page[domain.NewsFeed]) pagination.Page[domain.NewsFeed] {
	hydrated := make([]domain.NewsFeed, 0, len(page.Items))
	for _, entry := range page.Items {
		tweet, err := s.cachedTweet(ctx, entry.TweetID)
		if err != nil {
			continue
		}
		entry.Tweet = *tweet
		hydrated = append(hydrated, entry)
	}
	page.Items = hydrated
	return page
}

func (s *NewsFeedService) cachedTweet(ctx context.Context, tweetID int) (*domain.Tweet, error) {
	var tweet domain.Tweet
	err := s.objects.Get(ctx, cache.TweetKey(tweetID), &tweet, func(ctx context.Context) (interface{}, error) {
		var t domain.Tweet
		if err := s.db.WithContext(ctx).Preload("User").First(&t, "id = ?", tweetID).Error; err != nil {
			return nil, err
		}
		return &t, nil
	})
	if err != nil {
		return nil, err
	}
	return &tweet, nil
}

func feedCreatedAt(entry domain.NewsFeed) time.Time { return entry.CreatedAt }
