// Package cache keeps recently loaded report batches in memory so switching
// back to a date does not hit the query service again.
package cache

import (
	"context"
	"time"

	"github.com/couchcryptid/storm-data-dashboard/internal/domain"
	"github.com/couchcryptid/storm-data-dashboard/internal/observability"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// BatchLoader is the source the cache decorates.
type BatchLoader interface {
	LoadBatch(ctx context.Context, date time.Time) (domain.ReportBatch, error)
	LatestDate(ctx context.Context) (time.Time, error)
}

// BatchCache wraps a BatchLoader with a size-bounded, TTL-expiring LRU keyed
// by UTC day. Failed loads are never cached.
type BatchCache struct {
	inner   BatchLoader
	cache   *expirable.LRU[string, domain.ReportBatch]
	metrics *observability.Metrics
}

// NewBatchCache creates a cache holding at most size batches for ttl each.
func NewBatchCache(inner BatchLoader, size int, ttl time.Duration, metrics *observability.Metrics) *BatchCache {
	return &BatchCache{
		inner:   inner,
		cache:   expirable.NewLRU[string, domain.ReportBatch](size, nil, ttl),
		metrics: metrics,
	}
}

// LoadBatch returns the cached batch for the day of date, loading it on a miss.
func (c *BatchCache) LoadBatch(ctx context.Context, date time.Time) (domain.ReportBatch, error) {
	key := keyFor(date)
	if batch, ok := c.cache.Get(key); ok {
		c.metrics.BatchCache.WithLabelValues("hit").Inc()
		return batch, nil
	}
	c.metrics.BatchCache.WithLabelValues("miss").Inc()

	batch, err := c.inner.LoadBatch(ctx, date)
	if err != nil {
		return domain.ReportBatch{}, err
	}
	c.cache.Add(key, batch)
	return batch, nil
}

// LatestDate is not cached; it is only asked once at startup.
func (c *BatchCache) LatestDate(ctx context.Context) (time.Time, error) {
	return c.inner.LatestDate(ctx)
}

// Invalidate drops the batch for the day of date. It reports whether an
// entry was present.
func (c *BatchCache) Invalidate(date time.Time) bool {
	return c.cache.Remove(keyFor(date))
}

// Len returns the number of cached batches.
func (c *BatchCache) Len() int { return c.cache.Len() }

func keyFor(date time.Time) string {
	return domain.DayOf(date).Format(domain.DateLayout)
}
