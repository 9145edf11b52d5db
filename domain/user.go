package domain

import (
	"context"
	"time"
)

type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email" gorm:"notNull;uniqueIndex"`

	// Password is only ever populated from an incoming request, never stored.
	Password     string `json:"password,omitempty" gorm:"-"`
	PasswordHash string `json:"-" gorm:"notNull"`

	// Remember is the raw session token handed to the client as a cookie.
	// Only its HMAC hash is stored.
	Remember     string `json:"-" gorm:"-"`
	RememberHash string `json:"-" gorm:"notNull;uniqueIndex"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile holds the public-facing extras of a User. It lives in its own
// table so that profile edits don't churn the users table, and it is cached
// under its own key, invalidated together with the user.
type Profile struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id" gorm:"notNull;uniqueIndex"`
	Nickname  string    `json:"nickname"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UserUpdate struct {
	Name     *string `json:"name"`
	Nickname *string `json:"nickname"`
	Avatar   *string `json:"avatar_url"`
}

// UserService is a set of methods to manipulate and work with the User model,
// including the storage side of session-token authentication and the
// read-through user/profile caches.
type UserService interface {
	Create(ctx context.Context, user *User) error
	Authenticate(ctx context.Context, email, password string) (*User, error)
	ByID(ctx context.Context, id int) (*User, error)
	ByRemember(ctx context.Context, token string) (*User, error)
	// RotateRemember issues a fresh remember token and persists its hash,
	// invalidating any previously issued token for the user.
	RotateRemember(ctx context.Context, user *User) error
	Update(ctx context.Context, id int, upd *UserUpdate) (*User, error)

	// CachedUser and CachedProfile read through the object cache.
	CachedUser(ctx context.Context, id int) (*User, error)
	CachedProfile(ctx context.Context, userID int) (*Profile, error)
}
