package crud

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"chirper/cache"
	"chirper/domain"
	"chirper/errs"
)

// UserService manages Users and Profiles. It also contains the storage side
// of the session-token auth system; http/auth.go dealing with requests and
// cookies is the other half. It implements the domain.UserService interface.
type UserService struct {
	userValidator
}

// userValidator runs validations on incoming User data.
// On success, it passes the data on to userGorm.
type userValidator struct {
	hmac       HMAC
	pepper     string
	emailRegex *regexp.Regexp
	userGorm
}

// userGorm runs CRUD operations on the database using validated User data
// and keeps the user/profile object cache coherent.
type userGorm struct {
	db      *gorm.DB
	objects *cache.ObjectCache
	logger  *zap.Logger
}

// NewUserService returns an instance of UserService.
func NewUserService(db *gorm.DB, pepper, hmacKey string, objects *cache.ObjectCache, logger *zap.Logger) *UserService {
	return &UserService{
		userValidator{
			hmac:       NewHMAC(hmacKey),
			pepper:     pepper,
			emailRegex: regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,16}$`),
			userGorm: userGorm{
				db:      db,
				objects: objects,
				logger:  logger,
			},
		},
	}
}

// Ensure the UserService struct properly implements the domain.UserService
// interface. If it does not, then this expression becomes invalid and won't
// compile.
var _ domain.UserService = &UserService{}

// Create runs validations needed for creating new User database records.
// It generates a remember token if none is provided.
func (uv *userValidator) Create(ctx context.Context, user *domain.User) error {
	err := runUserValFns(user,
		uv.passwordRequired,
		uv.passwordMinLength,
		uv.passwordBcrypt,
		uv.rememberSetIfUnset,
		uv.rememberHmac,
		uv.emailNormalize,
		uv.emailRequired,
		uv.emailFormat,
		uv.emailNotTaken(ctx))
	if err != nil {
		return err
	}
	return uv.userGorm.Create(ctx, user)
}

// Authenticate checks a submitted email address and password for existence
// and correctness.
func (uv *userValidator) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	found, err := uv.userGorm.ByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	err = bcrypt.CompareHashAndPassword([]byte(found.PasswordHash), []byte(password+uv.pepper))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, errs.Errorf(errs.EINVALID, "The password is incorrect.")
		}
		return nil, err
	}
	return found, nil
}

// ByRemember hashes a raw remember token and passes the hash on to
// userGorm.ByRemember for lookup.
func (uv *userValidator) ByRemember(ctx context.Context, token string) (*domain.User, error) {
	return uv.userGorm.ByRemember(ctx, uv.hmac.Hash(token))
}

// RotateRemember generates a new remember token for the user and stores its
// hash. The old token stops resolving immediately, which is what logs other
// sessions out.
func (uv *userValidator) RotateRemember(ctx context.Context, user *domain.User) error {
	token, err := makeToken(RememberTokenBytes)
	if err != nil {
		return err
	}
	user.Remember = token
	user.RememberHash = uv.hmac.Hash(token)
	return uv.userGorm.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", user.ID).
		Update("remember_hash", user.RememberHash).Error
}

// runUserValFns runs any number of functions of type userValFn on the passed
// in User object, stopping at the first error.
func runUserValFns(user *domain.User, fns ...userValFn) error {
	for _, fn := range fns {
		if err := fn(user); err != nil {
			return err
		}
	}
	return nil
}

type userValFn func(user *domain.User) error

func (uv *userValidator) passwordRequired(user *domain.User) error {
	if user.Password == "" {
		return errs.Errorf(errs.EINVALID, "A password is required.")
	}
	return nil
}

func (uv *userValidator) passwordMinLength(user *domain.User) error {
	if len(user.Password) < 8 {
		return errs.Errorf(errs.EINVALID, "The password must be at least 8 characters long.")
	}
	return nil
}

// passwordBcrypt hashes the peppered password and clears the raw one.
func (uv *userValidator) passwordBcrypt(user *domain.User) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password+uv.pepper), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hashed)
	user.Password = ""
	return nil
}

func (uv *userValidator) rememberSetIfUnset(user *domain.User) error {
	if user.Remember != "" {
		return nil
	}
	token, err := makeToken(RememberTokenBytes)
	if err != nil {
		return err
	}
	user.Remember = token
	return nil
}

func (uv *userValidator) rememberHmac(user *domain.User) error {
	if user.Remember == "" {
		return nil
	}
	user.RememberHash = uv.hmac.Hash(user.Remember)
	return nil
}

func (uv *userValidator) emailNormalize(user *domain.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return nil
}

func (uv *userValidator) emailRequired(user *domain.User) error {
	if user.Email == "" {
		return errs.Errorf(errs.EINVALID, "An email address is required.")
	}
	return nil
}

func (uv *userValidator) emailFormat(user *domain.User) error {
	if !uv.emailRegex.MatchString(user.Email) {
		return errs.Errorf(errs.EINVALID, "The email address is not valid.")
	}
	return nil
}

func (uv *userValidator) emailNotTaken(ctx context.Context) userValFn {
	return func(user *domain.User) error {
		existing, err := uv.userGorm.ByEmail(ctx, user.Email)
		if err != nil {
			if errs.ErrorCode(err) == errs.ENOTFOUND {
				return nil
			}
			return err
		}
		if existing.ID != user.ID {
			return errs.Errorf(errs.EINVALID, "The email address is already taken.")
		}
		return nil
	}
}

// Create stores the user and seeds an empty profile row for it.
func (ug *userGorm) Create(ctx context.Context, user *domain.User) error {
	if err := ug.db.WithContext(ctx).Create(user).Error; err != nil {
		return err
	}
	profile := domain.Profile{UserID: user.ID}
	return ug.db.WithContext(ctx).Create(&profile).Error
}

func (ug *userGorm) ByID(ctx context.Context, id int) (*domain.User, error) {
	var user domain.User
	err := ug.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Errorf(errs.ENOTFOUND, "The user does not exist.")
		}
		return nil, err
	}
	return &user, nil
}

func (ug *userGorm) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := ug.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Errorf(errs.ENOTFOUND, "The email address does not exist in our database.")
		}
		return nil, err
	}
	return &user, nil
}

func (ug *userGorm) ByRemember(ctx context.Context, rememberHash string) (*domain.User, error) {
	var user domain.User
	err := ug.db.WithContext(ctx).First(&user, "remember_hash = ?", rememberHash).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Errorf(errs.ENOTFOUND, "The session token is not valid.")
		}
		return nil, err
	}
	return &user, nil
}

// Update applies the allowed user and profile fields and invalidates both
// cache entries. The profile is a dependent sub-entity keyed by the same
// user id, so it is invalidated even on a pure name change.
func (ug *userGorm) Update(ctx context.Context, id int, upd *domain.UserUpdate) (*domain.User, error) {
	user, err := ug.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		user.Name = *upd.Name
		if err := ug.db.WithContext(ctx).Model(user).Update("name", *upd.Name).Error; err != nil {
			return nil, err
		}
	}
	if upd.Nickname != nil || upd.Avatar != nil {
		updates := map[string]interface{}{}
		if upd.Nickname != nil {
			updates["nickname"] = *upd.Nickname
		}
		if upd.Avatar != nil {
			updates["avatar_url"] = *upd.Avatar
		}
		err := ug.db.WithContext(ctx).Model(&domain.Profile{}).
			Where("user_id = ?", id).
			Updates(updates).Error
		if err != nil {
			return nil, err
		}
	}

	if err := ug.objects.Invalidate(ctx, cache.UserKey(id)); err != nil {
		ug.logger.Warn("user cache invalidate failed", zap.Int("user_id", id), zap.Error(err))
	}
	if err := ug.objects.Invalidate(ctx, cache.ProfileKey(id)); err != nil {
		ug.logger.Warn("profile cache invalidate failed", zap.Int("user_id", id), zap.Error(err))
	}
	return user, nil
}

// CachedUser reads a user through the object cache.
func (ug *userGorm) CachedUser(ctx context.Context, id int) (*domain.User, error) {
	var user domain.User
	err := ug.objects.Get(ctx, cache.UserKey(id), &user, func(ctx context.Context) (interface{}, error) {
		return ug.ByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CachedProfile reads a profile through the object cache, creating the row
// on first access for users that predate the profiles table.
func (ug *userGorm) CachedProfile(ctx context.Context, userID int) (*domain.Profile, error) {
	var profile domain.Profile
	err := ug.objects.Get(ctx, cache.ProfileKey(userID), &profile, func(ctx context.Context) (interface{}, error) {
		var p domain.Profile
		err := ug.db.WithContext(ctx).
			Where(domain.Profile{UserID: userID}).
			FirstOrCreate(&p).Error
		if err != nil {
			return nil, err
		}
		return &p, nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
