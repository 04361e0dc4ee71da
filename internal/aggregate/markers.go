package aggregate

import (
	"fmt"
	"time"

	"github.com/couchcryptid/storm-data-dashboard/internal/domain"
)

// ColorMode selects which report attribute drives marker color.
type ColorMode string

const (
	ColorByType     ColorMode = "type"
	ColorBySeverity ColorMode = "severity"
)

// ParseColorMode validates a color mode name.
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(s); m {
	case ColorByType, ColorBySeverity:
		return m, nil
	default:
		return "", fmt.Errorf("unknown color mode %q", s)
	}
}

var palette = map[string]string{
	string(domain.EventHail):         "#3b82f6",
	string(domain.EventTornado):      "#ef4444",
	string(domain.EventWind):         "#f59e0b",
	string(domain.SeveritySevere):    "#b91c1c",
	string(domain.SeverityNonSevere): "#16a34a",
}

const fallbackColor = "#6b7280"

// Color maps a color key to its fill color.
func Color(key string) string {
	if c, ok := palette[key]; ok {
		return c
	}
	return fallbackColor
}

// Marker is one map point.
type Marker struct {
	ReportID string  `json:"reportId"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	ColorKey string  `json:"colorKey"`
	Color    string  `json:"color"`
}

// ColorKey returns the key r is colored by under mode.
func ColorKey(r domain.Report, mode ColorMode) string {
	if mode == ColorBySeverity {
		return string(r.Severity)
	}
	return string(r.EventType)
}

// Markers returns one marker per report in view order. The mode only affects
// ColorKey and Color.
func Markers(view []domain.Report, mode ColorMode) []Marker {
	out := make([]Marker, 0, len(view))
	for _, r := range view {
		key := ColorKey(r, mode)
		out = append(out, Marker{
			ReportID: r.ID,
			Lat:      r.Lat,
			Lon:      r.Lon,
			ColorKey: key,
			Color:    Color(key),
		})
	}
	return out
}

// Popup is the payload shown when a marker is clicked.
type Popup struct {
	ReportID  string    `json:"reportId"`
	EventType string    `json:"eventType"`
	State     string    `json:"state"`
	County    string    `json:"county"`
	Timestamp time.Time `json:"timestamp"`
	Magnitude string    `json:"magnitude"`
	Place     string    `json:"place,omitempty"`
}

// PopupFor builds the popup for r with the event type uppercased.
func PopupFor(r domain.Report) Popup {
	return Popup{
		ReportID:  r.ID,
		EventType: r.EventType.Upper(),
		State:     r.State,
		County:    r.County,
		Timestamp: r.Timestamp,
		Magnitude: FormatMagnitude(r.EventType, r.Magnitude),
	}
}
