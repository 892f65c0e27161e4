package identity

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultCacheSize = 4096
	defaultCacheTTL  = 5 * time.Minute
)

type cacheEntry struct {
	identity Identity
	expires  time.Time
}

// CachedResolver wraps a Resolver with an LRU cache keyed by credential.
// The cache bounds the per-request cost of identity resolution: a verified
// credential is reused until its entry expires instead of being verified
// on every operation.
//
// Negative results are not cached; a revoked session must stop resolving
// as soon as the underlying store says so.
type CachedResolver struct {
	inner Resolver
	cache *lru.Cache[string, cacheEntry]
	ttl   time.Duration
}

// NewCachedResolver wraps inner with a credential cache. A zero ttl uses
// the default.
func NewCachedResolver(inner Resolver, ttl time.Duration) *CachedResolver {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	cache, _ := lru.New[string, cacheEntry](defaultCacheSize)

	return &CachedResolver{
		inner: inner,
		cache: cache,
		ttl:   ttl,
	}
}

// Resolve returns the cached identity when fresh, otherwise delegates.
func (r *CachedResolver) Resolve(ctx context.Context, credential string) (Identity, error) {
	if entry, ok := r.cache.Get(credential); ok {
		if time.Now().Before(entry.expires) {
			return entry.identity, nil
		}

		r.cache.Remove(credential)
	}

	id, err := r.inner.Resolve(ctx, credential)
	if err != nil {
		return Identity{}, err
	}

	r.cache.Add(credential, cacheEntry{
		identity: id,
		expires:  time.Now().Add(r.ttl),
	})

	return id, nil
}

// Invalidate drops a credential from the cache, forcing re-resolution.
func (r *CachedResolver) Invalidate(credential string) {
	r.cache.Remove(credential)
}
