package mapbox

import (
	"context"
	"errors"
	"testing"

	"github.com/couchcryptid/storm-data-dashboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for cache tests ---

type countingGeocoder struct {
	reverseCalls int
	result       domain.GeocodingResult
	err          error
}

func (m *countingGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	m.reverseCalls++
	return m.result, m.err
}

func newCached(t *testing.T, inner domain.Geocoder, size int) *CachedGeocoder {
	t.Helper()
	cached, err := NewCachedGeocoder(inner, size, testMetrics())
	require.NoError(t, err)
	return cached
}

// --- CachedGeocoder tests ---

func TestCachedGeocoder_ReverseCacheHit(t *testing.T) {
	inner := &countingGeocoder{
		result: domain.GeocodingResult{FormattedAddress: "Omaha, NE", PlaceName: "Omaha"},
	}
	cached := newCached(t, inner, 10)

	r1, err := cached.ReverseGeocode(context.Background(), 41.2565, -95.9345)
	require.NoError(t, err)
	assert.Equal(t, "Omaha", r1.PlaceName)

	r2, err := cached.ReverseGeocode(context.Background(), 41.25651, -95.93449)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)

	assert.Equal(t, 1, inner.reverseCalls, "nearby coordinates share a cache entry")
}

func TestCachedGeocoder_DifferentKeysMiss(t *testing.T) {
	inner := &countingGeocoder{
		result: domain.GeocodingResult{PlaceName: "Place", FormattedAddress: "Place, NE"},
	}
	cached := newCached(t, inner, 10)

	_, _ = cached.ReverseGeocode(context.Background(), 41.2, -96.0)
	_, _ = cached.ReverseGeocode(context.Background(), 40.8, -96.7)

	assert.Equal(t, 2, inner.reverseCalls)
	assert.Equal(t, 2, cached.Len())
}

func TestCachedGeocoder_EmptyResultNotCached(t *testing.T) {
	inner := &countingGeocoder{}
	cached := newCached(t, inner, 10)

	_, _ = cached.ReverseGeocode(context.Background(), 41.2, -96.0)
	_, _ = cached.ReverseGeocode(context.Background(), 41.2, -96.0)

	assert.Equal(t, 2, inner.reverseCalls)
	assert.Zero(t, cached.Len())
}

func TestCachedGeocoder_ErrorNotCached(t *testing.T) {
	inner := &countingGeocoder{err: errors.New("rate limited")}
	cached := newCached(t, inner, 10)

	_, err := cached.ReverseGeocode(context.Background(), 41.2, -96.0)
	require.Error(t, err)
	assert.Zero(t, cached.Len())
}

func TestCachedGeocoder_Eviction(t *testing.T) {
	inner := &countingGeocoder{result: domain.GeocodingResult{FormattedAddress: "X"}}
	cached := newCached(t, inner, 2)

	_, _ = cached.ReverseGeocode(context.Background(), 1, 1)
	_, _ = cached.ReverseGeocode(context.Background(), 2, 2)
	_, _ = cached.ReverseGeocode(context.Background(), 3, 3) // evicts (1,1)
	_, _ = cached.ReverseGeocode(context.Background(), 1, 1)

	assert.Equal(t, 4, inner.reverseCalls)
	assert.Equal(t, 2, cached.Len())
}

func TestNewCachedGeocoder_InvalidSize(t *testing.T) {
	_, err := NewCachedGeocoder(&countingGeocoder{}, 0, testMetrics())
	require.Error(t, err)
}
