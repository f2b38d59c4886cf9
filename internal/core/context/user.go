// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// SystemActor is recorded when an operation runs without a caller identity
// (seed, worker, tests).
const SystemActor = "system"

// UserContext identifies the caller of a request.
// Identity is taken from the X-User-ID header; it is not authenticated.
type UserContext struct {
	UserID string
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// WithActor is a shorthand for WithUser with a bare user id.
func WithActor(ctx context.Context, userID string) context.Context {
	return WithUser(ctx, &UserContext{UserID: userID})
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// Actor returns the user id recorded as creator/poster/counter.
// Falls back to SystemActor.
func Actor(ctx context.Context) string {
	if uid := GetUserID(ctx); uid != "" {
		return uid
	}
	return SystemActor
}
