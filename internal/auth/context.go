package auth

import (
	"context"

	"github.com/openshelf/openshelf/internal/domain"
)

// contextKey is an unexported type to avoid context key collisions.
type contextKey int

const identityKey contextKey = iota

// Identity is the resolved authenticated subject attached to a request
// context by the middleware chain.
type Identity struct {
	// User is the resolved user record, without the password hash.
	User *domain.User

	// Token is the raw bearer token the request presented.
	Token string
}

// UserID returns the subject's user ID.
func (id *Identity) UserID() int64 {
	return id.User.ID
}

// WithIdentity returns a context carrying the given identity.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext retrieves the identity, if any, from a request context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok
}

// RequireIdentity retrieves the identity or fails with ErrAuthRequired.
func RequireIdentity(ctx context.Context) (*Identity, error) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return nil, ErrAuthRequired
	}
	return id, nil
}
