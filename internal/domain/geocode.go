package domain

import (
	"context"
	"log/slog"
)

// PlaceFor looks up the place name near a report. It returns "" when the
// geocoder is nil, the report has no coordinates, or the lookup fails, so a
// popup always renders even without geocoding.
func PlaceFor(ctx context.Context, r Report, geocoder Geocoder, logger *slog.Logger) string {
	if geocoder == nil {
		return ""
	}
	if r.Lat == 0 && r.Lon == 0 {
		return ""
	}

	result, err := geocoder.ReverseGeocode(ctx, r.Lat, r.Lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"report_id", r.ID,
			"lat", r.Lat,
			"lon", r.Lon,
			"error", err,
		)
		return ""
	}
	if result.FormattedAddress != "" {
		return result.FormattedAddress
	}
	return result.PlaceName
}
