// Package snapshot materializes raw records into tabular form with
// time-bounded caching. The cache is the only shared mutable state in the
// system: a key to (expiry, table) map behind a single mutex, with explicit
// key-pattern invalidation on the write path so a completed write is never
// followed by a stale read beyond the TTL window.
package snapshot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zopper/recon/internal/adapters/repository"
	"github.com/zopper/recon/internal/domain/model"
	"github.com/zopper/recon/internal/domain/table"
	"github.com/zopper/recon/pkg/metrics"
)

// defaultTTL bounds how stale a cached snapshot may get before a re-read.
const defaultTTL = 300 * time.Second

type cacheKey struct {
	partner string
	kind    model.DatasetKind
	batchID string
}

type entry struct {
	expires time.Time
	tbl     *table.Table
}

// Cache realizes and caches tabular snapshots per (partner, kind, batch).
type Cache struct {
	mu      sync.Mutex
	entries map[cacheKey]entry

	source repository.Source
	ttl    time.Duration
	clock  func() time.Time
}

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithTTL sets the snapshot expiry window.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock substitutes the time source, letting tests drive expiry
// deterministically.
func WithClock(clock func() time.Time) Option {
	return func(c *Cache) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// New creates a snapshot cache over a record source.
func New(source repository.Source, opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[cacheKey]entry),
		source:  source,
		ttl:     defaultTTL,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrLoad returns the snapshot for a tag, rebuilding it from the record
// source on miss or expiry. The returned table is a shallow clone: callers
// may attach derived columns freely without leaking them to each other.
func (c *Cache) GetOrLoad(ctx context.Context, partner string, kind model.DatasetKind, batchID string) (*table.Table, error) {
	key := cacheKey{partner: partner, kind: kind, batchID: batchID}
	now := c.clock()

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && now.Before(e.expires) {
		c.mu.Unlock()
		metrics.RecordSnapshotHit()
		return e.tbl.Clone(), nil
	}
	c.mu.Unlock()
	metrics.RecordSnapshotMiss()

	start := time.Now()
	recs, err := c.source.FetchRecords(ctx, partner, kind, batchID)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot %s/%s: %w", partner, kind, err)
	}
	tbl := table.FromRecords(recs)
	metrics.RecordSnapshotBuild(time.Since(start), tbl.Len())

	c.mu.Lock()
	c.entries[key] = entry{expires: c.clock().Add(c.ttl), tbl: tbl}
	c.mu.Unlock()
	return tbl.Clone(), nil
}

// Refresh force-rebuilds the snapshot for a tag regardless of expiry,
// used by the background prewarm pool after writes.
func (c *Cache) Refresh(ctx context.Context, partner string, kind model.DatasetKind, batchID string) error {
	key := cacheKey{partner: partner, kind: kind, batchID: batchID}

	start := time.Now()
	recs, err := c.source.FetchRecords(ctx, partner, kind, batchID)
	if err != nil {
		return fmt.Errorf("refreshing snapshot %s/%s: %w", partner, kind, err)
	}
	tbl := table.FromRecords(recs)
	metrics.RecordSnapshotBuild(time.Since(start), tbl.Len())

	c.mu.Lock()
	c.entries[key] = entry{expires: c.clock().Add(c.ttl), tbl: tbl}
	c.mu.Unlock()
	return nil
}

// Invalidate evicts cached snapshots matching the given tag. Each provided
// dimension matches exactly; an empty dimension is a wildcard. Calling with
// all dimensions empty clears the whole cache. Partner matching honors the
// same prefix patterns the record source does, so invalidating "samsung"
// also evicts "samsung%"-keyed snapshots and vice versa.
func (c *Cache) Invalidate(partner string, kind model.DatasetKind, batchID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	evicted := 0
	for key := range c.entries {
		if partner != "" && !partnerKeysOverlap(partner, key.partner) {
			continue
		}
		if kind != "" && key.kind != kind {
			continue
		}
		if batchID != "" && key.batchID != batchID {
			continue
		}
		delete(c.entries, key)
		evicted++
	}
	metrics.RecordSnapshotEvictions(evicted)
	return evicted
}

// Len reports how many snapshots are currently cached, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// partnerKeysOverlap reports whether a write to partner a could affect a
// snapshot keyed by partner b, accounting for "%" prefix patterns on
// either side.
func partnerKeysOverlap(a, b string) bool {
	pa, wa := strings.CutSuffix(strings.ToLower(a), "%")
	pb, wb := strings.CutSuffix(strings.ToLower(b), "%")
	switch {
	case wa && wb:
		return strings.HasPrefix(pa, pb) || strings.HasPrefix(pb, pa)
	case wa:
		return strings.HasPrefix(pb, pa)
	case wb:
		return strings.HasPrefix(pa, pb)
	default:
		return pa == pb
	}
}
