// Package memcache decorates a memory.Store with a read-through retrieval
// cache. Repeated context fetches for the same owner and query within the
// TTL are served locally instead of round-tripping to the knowledge service.
//
// Writes pass through untouched; a short TTL bounds staleness rather than
// attempting per-owner invalidation.
package memcache

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/adithya1123/cli-agent-w-graphiti/core"
	"github.com/adithya1123/cli-agent-w-graphiti/memory"
)

const (
	// DefaultTTL bounds how stale a cached bundle may be.
	DefaultTTL = time.Minute

	numCounters = 10_000
	maxCost     = 8 << 20 // 8 MiB of snippet text
	bufferItems = 64
)

// Store wraps an inner memory.Store with a ristretto cache on FetchContext.
type Store struct {
	inner memory.Store
	cache *ristretto.Cache
	ttl   time.Duration
}

// New builds a caching decorator around inner. A non-positive ttl falls back
// to DefaultTTL.
func New(inner memory.Store, ttl time.Duration) (*Store, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: numCounters,
		MaxCost:     maxCost,
		BufferItems: bufferItems,
	})
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{inner: inner, cache: cache, ttl: ttl}, nil
}

// FetchContext serves from cache when possible. The cache key includes the
// owner, preserving the isolation invariant: owner A can never be handed a
// bundle fetched for owner B.
func (s *Store) FetchContext(ctx context.Context, owner, query string, limit int) (*memory.ContextBundle, error) {
	key := owner + "\x00" + query
	if v, ok := s.cache.Get(key); ok {
		if bundle, ok := v.(*memory.ContextBundle); ok {
			return bundle, nil
		}
	}

	bundle, err := s.inner.FetchContext(ctx, owner, query, limit)
	if err != nil {
		return nil, err
	}
	s.cache.SetWithTTL(key, bundle, bundleCost(bundle), s.ttl)
	// Flush the set buffer so a repeat fetch on the same session hits.
	s.cache.Wait()
	return bundle, nil
}

// CommitTurn passes through to the inner store.
func (s *Store) CommitTurn(ctx context.Context, turn core.Turn) error {
	return s.inner.CommitTurn(ctx, turn)
}

// ListOwners passes through to the inner store.
func (s *Store) ListOwners(ctx context.Context) ([]string, error) {
	return s.inner.ListOwners(ctx)
}

// DeleteOwner drops the whole cache; ristretto cannot evict by key prefix
// and serving deleted facts from cache would break the delete contract.
func (s *Store) DeleteOwner(ctx context.Context, owner string) error {
	if err := s.inner.DeleteOwner(ctx, owner); err != nil {
		return err
	}
	s.cache.Clear()
	return nil
}

// Close releases the cache and the inner store.
func (s *Store) Close() error {
	s.cache.Close()
	return s.inner.Close()
}

func bundleCost(b *memory.ContextBundle) int64 {
	var cost int64 = 1
	if b != nil {
		for _, sn := range b.Snippets {
			cost += int64(len(sn.Text))
		}
	}
	return cost
}

var _ memory.Store = (*Store)(nil)
