package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/couchcryptid/storm-data-dashboard/internal/domain"
	"github.com/couchcryptid/storm-data-dashboard/internal/domain/domaintest"
	"github.com/couchcryptid/storm-data-dashboard/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLoader struct {
	loads  int
	err    error
	latest time.Time
}

func (m *countingLoader) LoadBatch(_ context.Context, date time.Time) (domain.ReportBatch, error) {
	m.loads++
	if m.err != nil {
		return domain.ReportBatch{}, m.err
	}
	if domain.DayOf(date).Equal(domaintest.Date) {
		return domaintest.Batch(), nil
	}
	b, _ := domain.NewReportBatch(date, nil, time.Time{})
	return b, nil
}

func (m *countingLoader) LatestDate(context.Context) (time.Time, error) {
	return m.latest, nil
}

func newCache(inner BatchLoader, size int, ttl time.Duration) *BatchCache {
	return NewBatchCache(inner, size, ttl, observability.NewMetricsForTesting())
}

func TestBatchCache_HitBySameDay(t *testing.T) {
	inner := &countingLoader{}
	c := newCache(inner, 4, time.Minute)

	b1, err := c.LoadBatch(context.Background(), domaintest.Date)
	require.NoError(t, err)
	b2, err := c.LoadBatch(context.Background(), domaintest.Date.Add(17*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 1, inner.loads)
	assert.Equal(t, domaintest.Total, b1.Count())
	assert.Equal(t, b1.Count(), b2.Count())
}

func TestBatchCache_ErrorsNotCached(t *testing.T) {
	inner := &countingLoader{err: errors.New("unavailable")}
	c := newCache(inner, 4, time.Minute)

	_, err := c.LoadBatch(context.Background(), domaintest.Date)
	require.Error(t, err)

	inner.err = nil
	b, err := c.LoadBatch(context.Background(), domaintest.Date)
	require.NoError(t, err)

	assert.Equal(t, 2, inner.loads)
	assert.Equal(t, domaintest.Total, b.Count())
}

func TestBatchCache_Invalidate(t *testing.T) {
	inner := &countingLoader{}
	c := newCache(inner, 4, time.Minute)
	_, _ = c.LoadBatch(context.Background(), domaintest.Date)

	assert.True(t, c.Invalidate(domaintest.Date.Add(time.Hour)))
	assert.False(t, c.Invalidate(domaintest.Date))

	_, _ = c.LoadBatch(context.Background(), domaintest.Date)
	assert.Equal(t, 2, inner.loads)
}

func TestBatchCache_EvictsOldest(t *testing.T) {
	inner := &countingLoader{}
	c := newCache(inner, 2, time.Minute)

	for i := range 3 {
		_, err := c.LoadBatch(context.Background(), domaintest.Date.AddDate(0, 0, i))
		require.NoError(t, err)
	}

	assert.Equal(t, 2, c.Len())
	_, _ = c.LoadBatch(context.Background(), domaintest.Date)
	assert.Equal(t, 4, inner.loads)
}

func TestBatchCache_Expires(t *testing.T) {
	inner := &countingLoader{}
	c := newCache(inner, 2, 20*time.Millisecond)
	_, _ = c.LoadBatch(context.Background(), domaintest.Date)

	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestBatchCache_LatestDatePassesThrough(t *testing.T) {
	inner := &countingLoader{latest: domaintest.Date}
	c := newCache(inner, 2, time.Minute)

	got, err := c.LatestDate(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domaintest.Date, got)
	assert.Zero(t, inner.loads)
}
