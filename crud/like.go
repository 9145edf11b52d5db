package crud

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"chirper/cache"
	"chirper/domain"
	"chirper/errs"
)

// LikeService manages Likes.
// It implements the domain.LikeService interface.
type LikeService struct {
	likeValidator
}

// likeValidator runs validations on incoming Like data.
// On success, it passes the data on to likeGorm.
type likeValidator struct {
	likeGorm
}

// likeGorm runs CRUD operations on the database using validated Like data
// and keeps the target's likes_count moving, both the storage column and
// the counter cache.
type likeGorm struct {
	db       *gorm.DB
	counters *cache.CounterCache
	notify   *NotificationService
	logger   *zap.Logger
}

// NewLikeService returns an instance of LikeService.
func NewLikeService(db *gorm.DB, counters *cache.CounterCache, notify *NotificationService, logger *zap.Logger) *LikeService {
	return &LikeService{
		likeValidator{
			likeGorm{
				db:       db,
				counters: counters,
				notify:   notify,
				logger:   logger,
			},
		},
	}
}

// Ensure the LikeService struct properly implements the domain.LikeService
// interface. If it does not, then this expression becomes invalid and won't
// compile.
var _ domain.LikeService = &LikeService{}

// Create runs validations needed for creating new Like database records.
func (lv *likeValidator) Create(ctx context.Context, like *domain.Like) error {
	err := runLikeValFns(like,
		lv.userIdValid,
		lv.targetTypeValid,
		lv.targetExists(ctx))
	if err != nil {
		return err
	}
	return lv.likeGorm.Create(ctx, like)
}

// Delete removes a like. No existence validation runs up front: unliking a
// target that was never liked is a legitimate no-op.
func (lv *likeValidator) Delete(ctx context.Context, like *domain.Like) error {
	err := runLikeValFns(like,
		lv.userIdValid,
		lv.targetTypeValid)
	if err != nil {
		return err
	}
	return lv.likeGorm.Delete(ctx, like)
}

// runLikeValFns runs any number of functions of type likeValFn on the
// passed in Like object, stopping at the first error.
func runLikeValFns(like *domain.Like, fns ...likeValFn) error {
	for _, fn := range fns {
		if err := fn(like); err != nil {
			return err
		}
	}
	return nil
}

type likeValFn func(like *domain.Like) error

func (lv *likeValidator) userIdValid(like *domain.Like) error {
	if like.UserID <= 0 {
		return errs.Errorf(errs.EINVALID, "A user ID is required.")
	}
	return nil
}

func (lv *likeValidator) targetTypeValid(like *domain.Like) error {
	if like.TargetType != domain.LikeTargetTweet && like.TargetType != domain.LikeTargetComment {
		return errs.Errorf(errs.EINVALID, "Likes can only target tweets or comments.")
	}
	return nil
}

func (lv *likeValidator) targetExists(ctx context.Context) likeValFn {
	return func(like *domain.Like) error {
		var err error
		switch like.TargetType {
		case domain.LikeTargetTweet:
			err = lv.db.WithContext(ctx).First(&domain.Tweet{}, "id = ?", like.TargetID).Error
		case domain.LikeTargetComment:
			err = lv.db.WithContext(ctx).First(&domain.Comment{}, "id = ?", like.TargetID).Error
		}
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.Errorf(errs.ENOTFOUND, "The liked %s does not exist.", like.TargetType)
			}
			return err
		}
		return nil
	}
}

// Create stores the like, bumps the target's likes_count and notifies the
// target's owner. Re-liking an already-liked target hits the uniqueness
// constraint and is treated as success: no second row, no count move, no
// notification.
func (lg *likeGorm) Create(ctx context.Context, like *domain.Like) error {
	err := lg.db.WithContext(ctx).Create(like).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return err
	}

	lg.moveLikesCount(ctx, like.TargetType, like.TargetID, +1)

	if ownerID, err := lg.targetOwner(ctx, like.TargetType, like.TargetID); err == nil {
		lg.notify.Dispatch(ctx, &domain.Notification{
			RecipientID: ownerID,
			ActorID:     like.UserID,
			Verb:        domain.NotificationVerbLiked,
			TargetType:  like.TargetType,
			TargetID:    like.TargetID,
		})
	}
	return nil
}

// Delete removes the like row matching (user, target). When no row existed
// nothing is decremented: the relationship layer, not the counter, decides
// whether an unlike means anything.
func (lg *likeGorm) Delete(ctx context.Context, like *domain.Like) error {
	result := lg.db.WithContext(ctx).
		Where("user_id = ? AND target_type = ? AND target_id = ?",
			like.UserID, like.TargetType, like.TargetID).
		Delete(&domain.Like{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return nil
	}
	lg.moveLikesCount(ctx, like.TargetType, like.TargetID, -1)
	return nil
}

// HasLiked reports whether the user likes the given target.
func (lg *likeGorm) HasLiked(ctx context.Context, userID int, targetType string, targetID int) (bool, error) {
	var count int64
	err := lg.db.WithContext(ctx).Model(&domain.Like{}).
		Where("user_id = ? AND target_type = ? AND target_id = ?", userID, targetType, targetID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (lg *likeGorm) targetOwner(ctx context.Context, targetType string, targetID int) (int, error) {
	switch targetType {
	case domain.LikeTargetTweet:
		var tweet domain.Tweet
		if err := lg.db.WithContext(ctx).First(&tweet, "id = ?", targetID).Error; err != nil {
			return 0, err
		}
		return tweet.UserID, nil
	default:
		var comment domain.Comment
		if err := lg.db.WithContext(ctx).First(&comment, "id = ?", targetID).Error; err != nil {
			return 0, err
		}
		return comment.UserID, nil
	}
}

// moveLikesCount applies delta to the target's likes_count column
// atomically and mirrors it into the counter cache.
func (lg *likeGorm) moveLikesCount(ctx context.Context, targetType string, targetID int, delta int) {
	model, name := likeTargetModel(targetType)
	err := lg.db.WithContext(ctx).Model(model).
		Where("id = ?", targetID).
		UpdateColumn("likes_count", gorm.Expr("likes_count + ?", delta)).Error
	if err != nil {
		lg.logger.Error("likes_count column update failed",
			zap.String("target_type", targetType), zap.Int("target_id", targetID), zap.Error(err))
		return
	}

	key := cache.CountKey(name, "likes_count", targetID)
	load := func(ctx context.Context) (int64, error) {
		var count int64
		err := lg.db.WithContext(ctx).Model(model).
			Select("likes_count").
			Where("id = ?", targetID).
			Scan(&count).Error
		return count, err
	}
	if delta > 0 {
		_, err = lg.counters.Incr(ctx, key, load)
	} else {
		_, err = lg.counters.Decr(ctx, key, load)
	}
	if err != nil {
		lg.logger.Warn("likes_count cache update failed",
			zap.String("target_type", targetType), zap.Int("target_id", targetID), zap.Error(err))
	}
}

// likeTargetModel maps a like target type to its gorm model and its count
// key model name.
func likeTargetModel(targetType string) (interface{}, string) {
	if targetType == domain.LikeTargetComment {
		return &domain.Comment{}, "Comment"
	}
	return &domain.Tweet{}, "Tweet"
}
