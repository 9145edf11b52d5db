package crud

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"chirper/cache"
	"chirper/domain"
	"chirper/errs"
)

// CommentService manages Comments.
// It implements the domain.CommentService interface.
type CommentService struct {
	commentValidator
}

// commentValidator runs validations on incoming Comment data.
// On success, it passes the data on to commentGorm.
type commentValidator struct {
	commentGorm
}

// commentGorm runs CRUD operations on the database using validated Comment
// data and keeps the tweet's comments_count moving, both the storage column
// and the counter cache.
type commentGorm struct {
	db       *gorm.DB
	counters *cache.CounterCache
	notify   *NotificationService
	logger   *zap.Logger
}

// NewCommentService returns an instance of CommentService.
func NewCommentService(db *gorm.DB, counters *cache.CounterCache, notify *NotificationService, logger *zap.Logger) *CommentService {
	return &CommentService{
		commentValidator{
			commentGorm{
				db:       db,
				counters: counters,
				notify:   notify,
				logger:   logger,
			},
		},
	}
}

// Ensure the CommentService struct properly implements the
// domain.CommentService interface. If it does not, then this expression
// becomes invalid and won't compile.
var _ domain.CommentService = &CommentService{}

// Create runs validations needed for creating new Comment database records.
func (cv *commentValidator) Create(ctx context.Context, comment *domain.Comment) error {
	err := runCommentValFns(comment,
		cv.userIdValid,
		cv.contentMinLength,
		cv.contentMaxLength,
		cv.tweetExists(ctx))
	if err != nil {
		return err
	}
	return cv.commentGorm.Create(ctx, comment)
}

// runCommentValFns runs any number of functions of type commentValFn on the
// passed in Comment object, stopping at the first error.
func runCommentValFns(comment *domain.Comment, fns ...commentValFn) error {
	for _, fn := range fns {
		if err := fn(comment); err != nil {
			return err
		}
	}
	return nil
}

type commentValFn func(comment *domain.Comment) error

func (cv *commentValidator) userIdValid(comment *domain.Comment) error {
	if comment.UserID <= 0 {
		return errs.Errorf(errs.EINVALID, "A user ID is required.")
	}
	return nil
}

func (cv *commentValidator) contentMinLength(comment *domain.Comment) error {
	if strings.TrimSpace(comment.Content) == "" {
		return errs.Errorf(errs.EINVALID, "Comment content must not be empty.")
	}
	return nil
}

func (cv *commentValidator) contentMaxLength(comment *domain.Comment) error {
	if utf8.RuneCountInString(comment.Content) > 280 {
		return errs.Errorf(errs.EINVALID, "Comment content max length is 280 characters.")
	}
	return nil
}

func (cv *commentValidator) tweetExists(ctx context.Context) commentValFn {
	return func(comment *domain.Comment) error {
		err := cv.db.WithContext(ctx).First(&domain.Tweet{}, "id = ?", comment.TweetID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.Errorf(errs.ENOTFOUND, "The commented tweet does not exist.")
			}
			return err
		}
		return nil
	}
}

// Create stores the comment, bumps the tweet's comments_count and notifies
// the tweet's author. The column moves with an atomic increment so that
// concurrent comments from different processes never lose an update.
func (cg *commentGorm) Create(ctx context.Context, comment *domain.Comment) error {
	if err := cg.db.WithContext(ctx).Create(comment).Error; err != nil {
		return err
	}
	if err := cg.db.WithContext(ctx).Preload("User").First(comment, "id = ?", comment.ID).Error; err != nil {
		return err
	}

	cg.moveCommentsCount(ctx, comment.TweetID, +1)

	var tweet domain.Tweet
	if err := cg.db.WithContext(ctx).First(&tweet, "id = ?", comment.TweetID).Error; err == nil {
		cg.notify.Dispatch(ctx, &domain.Notification{
			RecipientID: tweet.UserID,
			ActorID:     comment.UserID,
			Verb:        domain.NotificationVerbCommented,
			TargetType:  domain.LikeTargetTweet,
			TargetID:    tweet.ID,
		})
	}
	return nil
}

// Update edits the comment's content. Edits deliberately leave
// comments_count untouched; only create and delete move it.
func (cg *commentGorm) Update(ctx context.Context, id int, userID int, content string) (*domain.Comment, error) {
	comment, err := cg.byID(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment.UserID != userID {
		return nil, errs.Errorf(errs.EINVALID, "You can only edit your own comments.")
	}
	if strings.TrimSpace(content) == "" {
		return nil, errs.Errorf(errs.EINVALID, "Comment content must not be empty.")
	}
	if utf8.RuneCountInString(content) > 280 {
		return nil, errs.Errorf(errs.EINVALID, "Comment content max length is 280 characters.")
	}
	if err := cg.db.WithContext(ctx).Model(comment).Update("content", content).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// Delete removes the comment and decrements the tweet's comments_count.
// The decrement only happens when a row was actually deleted.
func (cg *commentGorm) Delete(ctx context.Context, id int, userID int) error {
	comment, err := cg.byID(ctx, id)
	if err != nil {
		return err
	}
	if comment.UserID != userID {
		return errs.Errorf(errs.EINVALID, "You can only delete your own comments.")
	}
	result := cg.db.WithContext(ctx).Delete(&domain.Comment{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		cg.moveCommentsCount(ctx, comment.TweetID, -1)
	}
	return nil
}

// ByTweetID lists a tweet's comments oldest first.
func (cg *commentGorm) ByTweetID(ctx context.Context, tweetID int) ([]domain.Comment, error) {
	var comments []domain.Comment
	err := cg.db.WithContext(ctx).
		Preload("User").
		Where("tweet_id = ?", tweetID).
		Order("created_at asc").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

func (cg *commentGorm) byID(ctx context.Context, id int) (*domain.Comment, error) {
	var comment domain.Comment
	err := cg.db.WithContext(ctx).First(&comment, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Errorf(errs.ENOTFOUND, "The comment does not exist.")
		}
		return nil, err
	}
	return &comment, nil
}

// moveCommentsCount applies delta to the tweet's comments_count column
// atomically and mirrors it into the counter cache. Cache failures are
// logged and swallowed; the column is the source of truth.
func (cg *commentGorm) moveCommentsCount(ctx context.Context, tweetID int, delta int) {
	err := cg.db.WithContext(ctx).Model(&domain.Tweet{}).
		Where("id = ?", tweetID).
		UpdateColumn("comments_count", gorm.Expr("comments_count + ?", delta)).Error
	if err != nil {
		cg.logger.Error("comments_count column update failed", zap.Int("tweet_id", tweetID), zap.Error(err))
		return
	}

	key := cache.CountKey("Tweet", "comments_count", tweetID)
	load := func(ctx context.Context) (int64, error) {
		var count int64
		err := cg.db.WithContext(ctx).Model(&domain.Tweet{}).
			Select("comments_count").
			Where("id = ?", tweetID).
			Scan(&count).Error
		return count, err
	}
	if delta > 0 {
		_, err = cg.counters.Incr(ctx, key, load)
	} else {
		_, err = cg.counters.Decr(ctx, key, load)
	}
	if err != nil {
		cg.logger.Warn("comments_count cache update failed", zap.Int("tweet_id", tweetID), zap.Error(err))
	}
}
