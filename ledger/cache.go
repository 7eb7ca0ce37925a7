package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/gigmoneyguru/guru-go-sdk/core"
)

// CachedStore wraps a Store with a read cache for Recent queries.
// Recall runs before every enhanced-mode execution, so repeated runs
// for the same owner within a short window hit the cache instead of
// the database. A Save for an owner invalidates that owner's cached
// queries by bumping a per-owner generation.
type CachedStore struct {
	inner Store
	cache *ristretto.Cache
	ttl   time.Duration

	mu  sync.Mutex
	gen map[string]uint64
}

func NewCachedStore(inner Store) (*CachedStore, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger cache: %w", err)
	}
	return &CachedStore{
		inner: inner,
		cache: cache,
		ttl:   5 * time.Minute,
		gen:   make(map[string]uint64),
	}, nil
}

func (c *CachedStore) Save(ctx context.Context, d *core.Decision) error {
	if err := c.inner.Save(ctx, d); err != nil {
		return err
	}
	c.mu.Lock()
	c.gen[d.OwnerID]++
	c.mu.Unlock()
	return nil
}

func (c *CachedStore) Recent(ctx context.Context, ownerID string, since time.Time, decisionType string, limit int) ([]*core.Decision, error) {
	key := c.key(ownerID, since, decisionType, limit)
	if v, ok := c.cache.Get(key); ok {
		if cached, ok := v.([]*core.Decision); ok {
			return cached, nil
		}
	}

	out, err := c.inner.Recent(ctx, ownerID, since, decisionType, limit)
	if err != nil {
		return nil, err
	}
	c.cache.SetWithTTL(key, out, 1, c.ttl)
	return out, nil
}

// Wait blocks until pending cache writes are applied. Exposed for
// tests, which would otherwise race the async admission buffer.
func (c *CachedStore) Wait() {
	c.cache.Wait()
}

// key embeds the owner's generation so stale entries are simply never
// looked up again after a Save. Since is truncated to the minute so
// back-to-back recalls share an entry.
func (c *CachedStore) key(ownerID string, since time.Time, decisionType string, limit int) string {
	c.mu.Lock()
	gen := c.gen[ownerID]
	c.mu.Unlock()
	return fmt.Sprintf("%s|%d|%s|%d|%d", ownerID, gen, decisionType, limit, since.Truncate(time.Minute).Unix())
}
