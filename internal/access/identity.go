// Package access decides what an authenticated caller may see and change.
// Every check takes the caller's Identity explicitly; a nil Identity is an
// unauthenticated caller.
package access

import (
	"context"

	"github.com/HerbHall/havenwatch/pkg/models"
)

// Identity is the authenticated caller of a core operation.
type Identity struct {
	UserID int64
	Role   models.Role
}

// IsAdmin reports whether id is a non-nil administrator.
func (id *Identity) IsAdmin() bool {
	return id != nil && id.Role == models.RoleAdmin
}

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the identity stored by WithIdentity, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}
