package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fieldslots/internal/availability/grid"
	"fieldslots/pkg/cache"
	"fieldslots/pkg/logger"
	"fieldslots/pkg/metrics"
)

const cacheKeyPrefix = "availability:"

// Cached keeps primary snapshots for a short TTL. Fallback results are never
// stored so a recovering primary is picked up on the next fetch.
type Cached struct {
	next    Fetcher
	store   cache.Store
	ttl     time.Duration
	metrics *metrics.Metrics
	log     *logger.Logger
}

func NewCached(next Fetcher, store cache.Store, ttl time.Duration, m *metrics.Metrics, log *logger.Logger) *Cached {
	return &Cached{
		next:    next,
		store:   store,
		ttl:     ttl,
		metrics: m,
		log:     log,
	}
}

func CacheKey(branchID int64, date string) string {
	return cacheKeyPrefix + grid.Scope{BranchID: branchID, Date: date}.Key()
}

func (c *Cached) Fetch(ctx context.Context, branchID int64, date string) (*Snapshot, error) {
	key := CacheKey(branchID, date)

	if data, ok, err := c.store.Get(ctx, key); err != nil {
		c.log.Warn("Snapshot cache read failed", "key", key, "error", err)
	} else if ok {
		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err == nil {
			c.metrics.FetchResults.WithLabelValues(resultCached).Inc()
			return &snap, nil
		}
		c.log.Warn("Dropping undecodable cache entry", "key", key)
		_ = c.store.Delete(ctx, key)
	}

	snap, err := c.next.Fetch(ctx, branchID, date)
	if err != nil {
		return nil, err
	}
	if snap.Source != grid.SourceSnapshot || c.ttl <= 0 {
		return snap, nil
	}

	data, err := json.Marshal(snap)
	if err != nil {
		c.log.Warn("Failed to encode snapshot for cache", "key", key, "error", err)
		return snap, nil
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.log.Warn("Snapshot cache write failed", "key", key, "error", err)
	}
	return snap, nil
}

func (c *Cached) Invalidate(ctx context.Context, branchID int64, date string) error {
	if err := c.store.Delete(ctx, CacheKey(branchID, date)); err != nil {
		return fmt.Errorf("invalidating snapshot cache: %w", err)
	}
	return nil
}
