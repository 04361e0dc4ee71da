package aggregate

import (
	"time"

	"github.com/couchcryptid/storm-data-dashboard/internal/domain"
)

// Segment is one stacked slice of a timeline bar.
type Segment struct {
	Type  domain.EventType `json:"type"`
	Count int              `json:"count"`
}

// Bucket is one hour-of-day bar. Segments always list every event type in
// domain.EventTypes order, including zero counts.
type Bucket struct {
	Hour     int       `json:"hour"`
	Segments []Segment `json:"segments"`
	Total    int       `json:"total"`
}

// LegendEntry labels one timeline color.
type LegendEntry struct {
	Type  domain.EventType `json:"type"`
	Label string           `json:"label"`
}

// Legend lists the timeline legend in stacking order.
func Legend() []LegendEntry {
	out := make([]LegendEntry, 0, len(domain.EventTypes))
	for _, t := range domain.EventTypes {
		out = append(out, LegendEntry{Type: t, Label: TypeLabel(t)})
	}
	return out
}

// Timeline buckets view by hour of day in loc. Hours without reports are
// omitted and buckets are sorted by hour. A nil loc means UTC.
func Timeline(view []domain.Report, loc *time.Location) []Bucket {
	if loc == nil {
		loc = time.UTC
	}

	var counts [24]map[domain.EventType]int
	for _, r := range view {
		h := r.Timestamp.In(loc).Hour()
		if counts[h] == nil {
			counts[h] = make(map[domain.EventType]int, len(domain.EventTypes))
		}
		counts[h][r.EventType]++
	}

	buckets := make([]Bucket, 0, 24)
	for h, byType := range counts {
		if byType == nil {
			continue
		}
		b := Bucket{Hour: h, Segments: make([]Segment, 0, len(domain.EventTypes))}
		for _, t := range domain.EventTypes {
			b.Segments = append(b.Segments, Segment{Type: t, Count: byType[t]})
			b.Total += byType[t]
		}
		buckets = append(buckets, b)
	}
	return buckets
}

// TimelineTotal sums every bucket.
func TimelineTotal(buckets []Bucket) int {
	n := 0
	for _, b := range buckets {
		n += b.Total
	}
	return n
}
