// Package filter holds the operator's filter selection and the pure engine
// that applies it to a report batch.
package filter

import (
	"slices"

	"github.com/couchcryptid/storm-data-dashboard/internal/domain"
)

// Filter is the operator's current selection. An empty field means "All" and
// imposes no constraint.
type Filter struct {
	Type     domain.EventType `json:"type"`
	State    string           `json:"state"`
	County   string           `json:"county"`
	Severity domain.Severity  `json:"severity"`
}

// IsZero reports whether no field is set.
func (f Filter) IsZero() bool { return f == Filter{} }

// Matches reports whether r satisfies every set field. Comparison is exact.
func (f Filter) Matches(r domain.Report) bool {
	if f.Type != "" && r.EventType != f.Type {
		return false
	}
	if f.State != "" && r.State != f.State {
		return false
	}
	if f.County != "" && r.County != f.County {
		return false
	}
	if f.Severity != "" && r.Severity != f.Severity {
		return false
	}
	return true
}

// Apply returns the reports of batch that match f, in batch order. The result
// is a fresh slice; the batch is never modified. An empty result is not an error.
func Apply(batch domain.ReportBatch, f Filter) []domain.Report {
	out := make([]domain.Report, 0, len(batch.Reports))
	for _, r := range batch.Reports {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// States returns the distinct state codes in the batch, sorted.
func States(batch domain.ReportBatch) []string {
	seen := make(map[string]struct{})
	for _, r := range batch.Reports {
		if r.State != "" {
			seen[r.State] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// Counties returns the distinct counties among reports in state, sorted. The
// lookup only considers the state; type, severity and county selections do not
// narrow the option list. An empty state yields no options.
func Counties(batch domain.ReportBatch, state string) []string {
	if state == "" {
		return nil
	}
	seen := make(map[string]struct{})
	for _, r := range batch.Reports {
		if r.State == state && r.County != "" {
			seen[r.County] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
