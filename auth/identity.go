package auth

import (
	"context"
	"slices"
	"time"
)

// Identity is an authenticated caller.
type Identity struct {
	// Principal is the subject of the token.
	Principal string

	// Roles are taken from the configured roles claim.
	Roles []string

	// Claims holds the raw token claims.
	Claims map[string]any

	ExpiresAt time.Time
	IssuedAt  time.Time
}

// HasRole reports whether the identity carries role.
func (id *Identity) HasRole(role string) bool {
	return id != nil && slices.Contains(id.Roles, role)
}

type contextKey int

const identityKey contextKey = iota

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the identity stored by WithIdentity, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}
