// Package aggregate derives the stats card, hourly timeline and map markers
// from a filtered view. Every function here is pure.
package aggregate

import (
	"time"

	"github.com/couchcryptid/storm-data-dashboard/internal/domain"
)

// Stats is the summary card for one filtered view.
type Stats struct {
	Total  int                      `json:"total"`
	ByType map[domain.EventType]int `json:"byType"`
	// MaxMagnitude only has entries for types with at least one match.
	MaxMagnitude map[domain.EventType]float64 `json:"maxMagnitude"`
	DateRange    DateRange                    `json:"dateRange"`
}

// DateRange is the span of the loaded batch. It is zero when the view is empty.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// IsZero reports whether the range is unset.
func (d DateRange) IsZero() bool { return d.From.IsZero() && d.To.IsZero() }

// ComputeStats summarizes view. The date range comes from the enclosing batch,
// not from the filtered subset; a single-day batch renders the same date twice.
func ComputeStats(batch domain.ReportBatch, view []domain.Report) Stats {
	s := Stats{
		Total:        len(view),
		ByType:       make(map[domain.EventType]int, len(domain.EventTypes)),
		MaxMagnitude: make(map[domain.EventType]float64, len(domain.EventTypes)),
	}
	for _, t := range domain.EventTypes {
		s.ByType[t] = 0
	}

	for _, r := range view {
		s.ByType[r.EventType]++
		if cur, ok := s.MaxMagnitude[r.EventType]; !ok || r.Magnitude > cur {
			s.MaxMagnitude[r.EventType] = r.Magnitude
		}
	}

	if s.Total > 0 {
		// Batches always cover one day, so both ends are the batch date.
		s.DateRange = DateRange{From: batch.Date, To: batch.Date}
	}
	return s
}
