package identity

import (
	"context"
	"errors"
)

// ChainResolver tries each resolver in order and returns the first
// identity found. Resolvers that report ErrNoIdentity pass the credential
// on to the next one; any other error stops the chain.
type ChainResolver struct {
	resolvers []Resolver
}

// NewChainResolver builds a resolver chain. Nil entries are skipped so a
// disabled OIDC resolver can be passed directly.
func NewChainResolver(resolvers ...Resolver) *ChainResolver {
	chain := &ChainResolver{}

	for _, r := range resolvers {
		if r != nil {
			chain.resolvers = append(chain.resolvers, r)
		}
	}

	return chain
}

// Resolve implements Resolver.
func (c *ChainResolver) Resolve(ctx context.Context, credential string) (Identity, error) {
	for _, r := range c.resolvers {
		id, err := r.Resolve(ctx, credential)
		if err == nil {
			return id, nil
		}

		if !errors.Is(err, ErrNoIdentity) {
			return Identity{}, err
		}
	}

	return Identity{}, ErrNoIdentity
}
