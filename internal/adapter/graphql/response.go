package graphql

import (
	"time"

	"github.com/couchcryptid/storm-data-dashboard/internal/domain"
)

type response struct {
	Data struct {
		StormReports stormReports `json:"stormReports"`
	} `json:"data"`
	Errors []gqlError `json:"errors"`
}

type gqlError struct {
	Message string `json:"message"`
}

type stormReports struct {
	TotalCount int           `json:"totalCount"`
	HasMore    bool          `json:"hasMore"`
	Reports    []stormReport `json:"reports"`
	Meta       queryMeta     `json:"meta"`
}

type queryMeta struct {
	LastUpdated    *string `json:"lastUpdated"`
	DataLagMinutes *int    `json:"dataLagMinutes"`
}

func (m queryMeta) lastUpdated() (time.Time, bool) {
	if m.LastUpdated == nil || *m.LastUpdated == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, *m.LastUpdated)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

type stormReport struct {
	ID          string `json:"id"`
	EventType   string `json:"eventType"`
	Measurement struct {
		Magnitude float64 `json:"magnitude"`
		Unit      string  `json:"unit"`
	} `json:"measurement"`
	BeginTime string `json:"beginTime"`
	Location  struct {
		Raw    string `json:"raw"`
		Name   string `json:"name"`
		State  string `json:"state"`
		County string `json:"county"`
	} `json:"location"`
	Geo struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"geo"`
	SourceOffice string `json:"sourceOffice"`
	Comments     string `json:"comments"`
}

// toDomain converts a wire report. Reports with an unknown event type or an
// unparseable begin time are rejected.
func (r stormReport) toDomain() (domain.Report, bool) {
	et, ok := domain.ParseEventType(r.EventType)
	if !ok {
		return domain.Report{}, false
	}
	ts, err := time.Parse(time.RFC3339, r.BeginTime)
	if err != nil {
		return domain.Report{}, false
	}

	location := r.Location.Name
	if location == "" {
		location = r.Location.Raw
	}

	return domain.ClassifyReport(domain.Report{
		ID:           r.ID,
		EventType:    et,
		State:        r.Location.State,
		County:       r.Location.County,
		Location:     location,
		Magnitude:    r.Measurement.Magnitude,
		Unit:         r.Measurement.Unit,
		Timestamp:    ts.UTC(),
		Lat:          r.Geo.Lat,
		Lon:          r.Geo.Lon,
		SourceOffice: r.SourceOffice,
		Comments:     r.Comments,
	}), true
}
