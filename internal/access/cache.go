package access

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ExistenceProber answers whether a principal is known to the policy engine.
type ExistenceProber interface {
	UserExists(ctx context.Context, key string) (bool, error)
}

// ExistenceCache memoizes policy-engine existence probes for the lifetime of
// the process. Both positive and negative answers are cached; there is no
// expiry. A principal created by another process after a negative probe stays
// invisible here until restart.
type ExistenceCache struct {
	prober ExistenceProber

	mu   sync.RWMutex
	seen map[string]bool

	group singleflight.Group
}

// NewExistenceCache builds a cache that populates itself through prober.
func NewExistenceCache(prober ExistenceProber) *ExistenceCache {
	return &ExistenceCache{
		prober: prober,
		seen:   make(map[string]bool),
	}
}

// Get returns the cached answer for the principal, if any.
func (c *ExistenceCache) Get(key string) (exists, known bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	exists, known = c.seen[key]
	return exists, known
}

// Set records the answer for the principal.
func (c *ExistenceCache) Set(key string, exists bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen[key] = exists
}

// EnsureKnown returns the cached answer or probes the policy engine once and
// caches the result. Concurrent calls for the same principal share a single
// probe.
func (c *ExistenceCache) EnsureKnown(ctx context.Context, key string) (bool, error) {
	if exists, known := c.Get(key); known {
		return exists, nil
	}
	result, err, _ := c.group.Do(key, func() (any, error) {
		if exists, known := c.Get(key); known {
			return exists, nil
		}
		exists, err := c.prober.UserExists(ctx, key)
		if err != nil {
			return false, err
		}
		c.Set(key, exists)
		return exists, nil
	})
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}
