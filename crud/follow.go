package crud

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"chirper/cache"
	"chirper/domain"
	"chirper/errs"
	"chirper/pagination"
)

// FollowService manages Follows and the follow-graph cache.
// It implements the domain.FollowService interface.
type FollowService struct {
	followValidator
}

// followValidator runs validations on incoming Follow data.
// On success, it passes the data on to followGorm.
type followValidator struct {
	followGorm
}

// followGorm runs CRUD operations on the database using validated Follow
// data and owns the cached following set.
type followGorm struct {
	db         *gorm.DB
	followings *cache.ObjectCache
	logger     *zap.Logger
}

// NewFollowService returns an instance of FollowService.
func NewFollowService(db *gorm.DB, followings *cache.ObjectCache, logger *zap.Logger) *FollowService {
	return &FollowService{
		followValidator{
			followGorm{
				db:         db,
				followings: followings,
				logger:     logger,
			},
		},
	}
}

// Ensure the FollowService struct properly implements the
// domain.FollowService interface. If it does not, then this expression
// becomes invalid and won't compile.
var _ domain.FollowService = &FollowService{}

// Create runs validations needed for creating new Follow database records.
func (fv *followValidator) Create(ctx context.Context, follow *domain.Follow) error {
	err := runFollowValFns(follow,
		fv.followedIsNotFollower,
		fv.followedUserExists(ctx),
		fv.notAlreadyFollowed(ctx))
	if err != nil {
		return err
	}
	return fv.followGorm.Create(ctx, follow)
}

// Delete runs validations needed for deleting existing Follow database records.
func (fv *followValidator) Delete(ctx context.Context, follow *domain.Follow) error {
	return fv.followGorm.Delete(ctx, follow)
}

// runFollowValFns runs any number of functions of type followValFn on the
// passed in Follow object, stopping at the first error.
func runFollowValFns(follow *domain.Follow, fns ...followValFn) error {
	for _, fn := range fns {
		if err := fn(follow); err != nil {
			return err
		}
	}
	return nil
}

type followValFn func(follow *domain.Follow) error

func (fv *followValidator) followedIsNotFollower(follow *domain.Follow) error {
	if follow.FollowerID == follow.FollowedID {
		return errs.Errorf(errs.EINVALID, "You cannot follow yourself.")
	}
	return nil
}

func (fv *followValidator) followedUserExists(ctx context.Context) followValFn {
	return func(follow *domain.Follow) error {
		err := fv.db.WithContext(ctx).First(&domain.User{}, "id = ?", follow.FollowedID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.Errorf(errs.ENOTFOUND, "The user to be followed does not exist.")
			}
			return err
		}
		return nil
	}
}

func (fv *followValidator) notAlreadyFollowed(ctx context.Context) followValFn {
	return func(follow *domain.Follow) error {
		var count int64
		err := fv.db.WithContext(ctx).Model(&domain.Follow{}).
			Where("follower_id = ? AND followed_id = ?", follow.FollowerID, follow.FollowedID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return errs.Errorf(errs.EINVALID, "You already follow this user.")
		}
		return nil
	}
}

// Create stores the follow edge and invalidates the follower's cached
// following set. A duplicate insert that slipped past validation (two
// concurrent follow requests) hits the uniqueness constraint and is treated
// as success.
func (fg *followGorm) Create(ctx context.Context, follow *domain.Follow) error {
	err := fg.db.WithContext(ctx).Create(follow).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	fg.invalidateFollowings(ctx, follow.FollowerID)
	if err == nil {
		fg.db.WithContext(ctx).Preload("Followed").Preload("Follower").First(follow, "id = ?", follow.ID)
	}
	return nil
}

// Delete removes the follow edge and invalidates the follower's cached
// following set.
func (fg *followGorm) Delete(ctx context.Context, follow *domain.Follow) error {
	result := fg.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", follow.FollowerID, follow.FollowedID).
		Delete(&domain.Follow{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.Errorf(errs.EINVALID, "You don't follow this user.")
	}
	fg.invalidateFollowings(ctx, follow.FollowerID)
	return nil
}

// invalidateFollowings must run on every follow/unfollow originated by the
// user; the set has no TTL, so a missed invalidation here would be
// permanent staleness.
func (fg *followGorm) invalidateFollowings(ctx context.Context, userID int) {
	if err := fg.followings.Invalidate(ctx, cache.FollowingsKey(userID)); err != nil {
		fg.logger.Warn("followings cache invalidate failed", zap.Int("user_id", userID), zap.Error(err))
	}
}

// FollowingIDs returns the set of ids the user follows, read through the
// follow-graph cache. The full set is cached because it gates visibility
// and has_followed annotations on every feed render.
func (fg *followGorm) FollowingIDs(ctx context.Context, userID int) (map[int]bool, error) {
	var ids []int
	err := fg.followings.Get(ctx, cache.FollowingsKey(userID), &ids, func(ctx context.Context) (interface{}, error) {
		var loaded []int
		err := fg.db.WithContext(ctx).Model(&domain.Follow{}).
			Where("follower_id = ?", userID).
			Pluck("followed_id", &loaded).Error
		return loaded, err
	})
	if err != nil {
		return nil, err
	}
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// HasFollowed reports whether fromUserID follows toUserID, through the
// cached following set.
func (fg *followGorm) HasFollowed(ctx context.Context, fromUserID, toUserID int) (bool, error) {
	set, err := fg.FollowingIDs(ctx, fromUserID)
	if err != nil {
		return false, err
	}
	return set[toUserID], nil
}

// FollowerIDs returns all follower ids of a user in one query. This is the
// fanout entry point. It is deliberately not cached: the inbound edge set
// can be unbounded and caching it would defeat the bounded-cache design.
func (fg *followGorm) FollowerIDs(ctx context.Context, userID int) ([]int, error) {
	var ids []int
	err := fg.db.WithContext(ctx).Model(&domain.Follow{}).
		Where("followed_id = ?", userID).
		Pluck("follower_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// FollowersPage serves a counted page of a user's followers.
func (fg *followGorm) FollowersPage(ctx context.Context, userID int, req pagination.PageRequest) (pagination.NumberedPage[domain.Follow], error) {
	q := fg.db.WithContext(ctx).Model(&domain.Follow{}).
		Preload("Follower").
		Where("followed_id = ?", userID).
		Order("created_at desc, id desc")
	return pagination.PaginatePage[domain.Follow](q, req)
}

// FollowingsPage serves a counted page of the users someone follows.
func (fg *followGorm) FollowingsPage(ctx context.Context, userID int, req pagination.PageRequest) (pagination.NumberedPage[domain.Follow], error) {
	q := fg.db.WithContext(ctx).Model(&domain.Follow{}).
		Preload("Followed").
		Where("follower_id = ?", userID).
		Order("created_at desc, id desc")
	return pagination.PaginatePage[domain.Follow](q, req)
}
