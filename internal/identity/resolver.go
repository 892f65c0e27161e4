package identity

import (
	"context"

	"github.com/ghxstship/atlvs/internal/db/models"
)

// Identity is the stable caller identity a credential resolves to.
type Identity struct {
	// UserID is the resolved user's id.
	UserID string
	// Email is the resolved user's login identifier.
	Email string
	// Source indicates which resolver produced the identity.
	Source models.AuthSource
}

// Resolver maps a bearer credential to a caller identity.
type Resolver interface {
	// Resolve returns the identity for the credential, or ErrNoIdentity
	// when the credential is unknown, expired or disabled.
	Resolve(ctx context.Context, credential string) (Identity, error)
}

// Invalidator is implemented by resolvers that cache credentials. Logout
// calls it so a revoked credential stops resolving immediately instead of
// living out its cache TTL.
type Invalidator interface {
	Invalidate(credential string)
}

type contextKey struct{}

// WithIdentity returns a context carrying the resolved caller identity.
// The boundary (the web auth middleware, or a test) attaches it exactly
// once per operation.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the caller identity attached to the context.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
