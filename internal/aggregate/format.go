package aggregate

import (
	"fmt"
	"strconv"

	"github.com/couchcryptid/storm-data-dashboard/internal/domain"
)

// NoData is shown in place of the date range when nothing matches.
const NoData = "No data"

// String renders "YYYY-MM-DD — YYYY-MM-DD", or NoData for a zero range.
func (d DateRange) String() string {
	if d.IsZero() {
		return NoData
	}
	return d.From.Format(domain.DateLayout) + " — " + d.To.Format(domain.DateLayout)
}

// MaxLabel formats the stats-card max line for one event type, e.g.
// `max 1.75"`, "max EF3" or "max 72 mph". It returns "" when the type has no
// matches so the card renders no max line at all.
func (s Stats) MaxLabel(t domain.EventType) string {
	m, ok := s.MaxMagnitude[t]
	if !ok {
		return ""
	}
	return "max " + FormatMagnitude(t, m)
}

// FormatMagnitude renders a magnitude in the unit of its event type.
func FormatMagnitude(t domain.EventType, m float64) string {
	switch t {
	case domain.EventHail:
		return strconv.FormatFloat(m, 'f', -1, 64) + `"`
	case domain.EventTornado:
		return fmt.Sprintf("EF%d", int(m))
	case domain.EventWind:
		return strconv.FormatFloat(m, 'f', -1, 64) + " mph"
	default:
		return strconv.FormatFloat(m, 'f', -1, 64)
	}
}

// TypeLabel is the legend label for an event type, e.g. "Hail".
func TypeLabel(t domain.EventType) string {
	switch t {
	case domain.EventHail:
		return "Hail"
	case domain.EventTornado:
		return "Tornado"
	case domain.EventWind:
		return "Wind"
	default:
		return string(t)
	}
}
