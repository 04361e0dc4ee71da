package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

// --- mock geocoder ---

type mockGeocoder struct {
	result GeocodingResult
	err    error
	calls  int
}

func (m *mockGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (GeocodingResult, error) {
	m.calls++
	return m.result, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- tests ---

func TestPlaceFor_NilGeocoder(t *testing.T) {
	r := Report{ID: "hail-1", Lat: 41.2, Lon: -96.1}

	assert.Empty(t, PlaceFor(context.Background(), r, nil, discardLogger()))
}

func TestPlaceFor_ReverseGeocode(t *testing.T) {
	geo := &mockGeocoder{
		result: GeocodingResult{
			FormattedAddress: "Omaha, Nebraska, United States",
			PlaceName:        "Omaha",
			Confidence:       0.98,
		},
	}
	r := Report{ID: "hail-1", Lat: 41.2, Lon: -96.1}

	place := PlaceFor(context.Background(), r, geo, discardLogger())

	assert.Equal(t, "Omaha, Nebraska, United States", place)
	assert.Equal(t, 1, geo.calls)
}

func TestPlaceFor_FallsBackToPlaceName(t *testing.T) {
	geo := &mockGeocoder{result: GeocodingResult{PlaceName: "Omaha"}}
	r := Report{ID: "hail-1", Lat: 41.2, Lon: -96.1}

	assert.Equal(t, "Omaha", PlaceFor(context.Background(), r, geo, discardLogger()))
}

func TestPlaceFor_Error_GracefulDegradation(t *testing.T) {
	geo := &mockGeocoder{err: errors.New("rate limited")}
	r := Report{ID: "wind-1", Lat: 41.2, Lon: -96.1}

	assert.Empty(t, PlaceFor(context.Background(), r, geo, discardLogger()))
	assert.Equal(t, 1, geo.calls)
}

func TestPlaceFor_NoCoordinates(t *testing.T) {
	geo := &mockGeocoder{}

	assert.Empty(t, PlaceFor(context.Background(), Report{ID: "evt-5"}, geo, discardLogger()))
	assert.Equal(t, 0, geo.calls)
}
