package dashboard

import (
	"fmt"

	"github.com/couchcryptid/storm-data-dashboard/internal/aggregate"
	"github.com/couchcryptid/storm-data-dashboard/internal/domain"
	"github.com/couchcryptid/storm-data-dashboard/internal/filter"
)

// Phase is the view lifecycle state.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseEmpty   Phase = "empty"
)

// Status line texts.
const (
	StatusLoadingText = "Loading reports…"
	StatusNoReports   = "No reports for selected date"
)

// Status line classes.
const (
	StatusClassOK      = "ok"
	StatusClassLoading = "loading"
	StatusClassError   = "error"
)

// Status is the status line under the toolbar.
type Status struct {
	Text  string `json:"text"`
	Class string `json:"class"`
}

// Snapshot is everything one recomputation cycle publishes. All views are
// derived from the same filtered view, so their totals always agree.
type Snapshot struct {
	Seq       uint64           `json:"seq"`
	Phase     Phase            `json:"phase"`
	Status    Status           `json:"status"`
	Freshness domain.Freshness `json:"freshness"`
	Date      DateView         `json:"date"`

	Filter        filter.Filter `json:"filter"`
	CountyEnabled bool          `json:"countyEnabled"`
	StateOptions  []string      `json:"stateOptions"`
	CountyOptions []string      `json:"countyOptions"`

	Stats     aggregate.Stats             `json:"stats"`
	MaxLabels map[domain.EventType]string `json:"maxLabels"`
	DateRange string                      `json:"dateRange"`

	Timeline []aggregate.Bucket      `json:"timeline"`
	Legend   []aggregate.LegendEntry `json:"legend"`

	ColorMode aggregate.ColorMode `json:"colorMode"`
	Markers   []aggregate.Marker  `json:"markers"`

	Rows []domain.Report `json:"rows"`
}

func readyStatus(batch domain.ReportBatch) Status {
	if batch.Count() == 0 {
		return Status{Text: StatusNoReports, Class: StatusClassOK}
	}
	return Status{Text: fmt.Sprintf("%d reports loaded", batch.Count()), Class: StatusClassOK}
}

func failedStatus(err error) Status {
	return Status{Text: "Failed to load reports: " + err.Error(), Class: StatusClassError}
}

func maxLabels(s aggregate.Stats) map[domain.EventType]string {
	out := make(map[domain.EventType]string, len(s.MaxMagnitude))
	for _, t := range domain.EventTypes {
		if l := s.MaxLabel(t); l != "" {
			out[t] = l
		}
	}
	return out
}
