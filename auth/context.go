// Package auth carries the authenticated user through a request's context.
package auth

import (
	"context"

	"chirper/domain"
)

const (
	userKey privateKey = "user"
)

type privateKey string

// SetUser returns a child context carrying the authenticated user.
func SetUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// GetUser returns the authenticated user of the request, or nil if the
// request carries no valid session.
func GetUser(ctx context.Context) *domain.User {
	if temp := ctx.Value(userKey); temp != nil {
		if user, ok := temp.(*domain.User); ok {
			return user
		}
	}
	return nil
}
