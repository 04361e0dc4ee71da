// Package domaintest builds a deterministic report batch shaped like the
// 2024-04-26 outbreak day, for use in tests across packages.
package domaintest

import (
	"fmt"
	"time"

	"github.com/couchcryptid/storm-data-dashboard/internal/domain"
)

// Date is the fixture day.
var Date = time.Date(2024, time.April, 26, 0, 0, 0, 0, time.UTC)

// LastUpdated is the data freshness stamp carried by the fixture batch.
var LastUpdated = time.Date(2024, time.April, 27, 5, 30, 0, 0, time.UTC)

// Totals of the fixture batch.
const (
	Total     = 271
	Hail      = 79
	Tornadoes = 149
	Wind      = 43
)

type stateDef struct {
	code     string
	count    int
	lat, lon float64
	counties []string
}

// States in descending report count. The first three carry 100, 69 and 39
// reports.
var states = []stateDef{
	{"NE", 100, 41.2, -96.0, []string{"Douglas", "Lancaster", "Saunders", "Washington"}},
	{"IA", 69, 41.6, -93.6, []string{"Harrison", "Polk", "Pottawattamie"}},
	{"TX", 39, 32.8, -97.3, []string{"Dallas", "Tarrant"}},
	{"KS", 15, 38.9, -97.6, []string{"Saline", "Sedgwick"}},
	{"MO", 12, 39.1, -94.6, []string{"Jackson"}},
	{"OK", 10, 35.5, -97.5, []string{"Oklahoma", "Tulsa"}},
	{"MN", 8, 44.9, -93.3, []string{"Hennepin"}},
	{"SD", 6, 43.5, -96.7, []string{"Minnehaha"}},
	{"CO", 5, 39.7, -104.9, []string{"Weld"}},
	{"IL", 4, 41.8, -87.6, []string{"Cook"}},
	{"WI", 3, 43.0, -89.4, []string{"Dane"}},
}

// StateCounts returns the number of fixture reports per state.
func StateCounts() map[string]int {
	out := make(map[string]int, len(states))
	for _, s := range states {
		out[s.code] = s.count
	}
	return out
}

var (
	hailSizes      = []float64{0.75, 1.0, 1.75, 1.25}
	tornadoRatings = []float64{0, 1, 2, 3, 1}
	windSpeeds     = []float64{50, 60, 72, 58}
)

// Reports returns the fixture reports in a fixed order. Each call returns a
// fresh slice.
func Reports() []domain.Report {
	types := make([]domain.EventType, 0, Total)
	types = appendN(types, domain.EventHail, Hail)
	types = appendN(types, domain.EventTornado, Tornadoes)
	types = appendN(types, domain.EventWind, Wind)

	slots := make([]stateDef, 0, Total)
	for _, s := range states {
		for range s.count {
			slots = append(slots, s)
		}
	}

	perType := map[domain.EventType]int{}
	perState := map[string]int{}
	reports := make([]domain.Report, 0, Total)
	for i, et := range types {
		// 97 is coprime to 271, so every state slot is used exactly once.
		st := slots[(i*97)%Total]
		n := perType[et]
		perType[et]++
		k := perState[st.code]
		perState[st.code]++

		reports = append(reports, domain.ClassifyReport(domain.Report{
			ID:           fmt.Sprintf("%s-%d", et, n+1),
			EventType:    et,
			State:        st.code,
			County:       st.counties[k%len(st.counties)],
			Location:     fmt.Sprintf("%d N %s", k%5+1, st.counties[k%len(st.counties)]),
			Magnitude:    magnitude(et, n),
			Timestamp:    Date.Add(time.Duration((i*7)%1440) * time.Minute),
			Lat:          st.lat + float64(k%10)*0.05,
			Lon:          st.lon - float64(k%10)*0.05,
			SourceOffice: "OAX",
		}))
	}
	return reports
}

// Batch returns the fixture as a loaded batch.
func Batch() domain.ReportBatch {
	b, _ := domain.NewReportBatch(Date, Reports(), LastUpdated)
	return b
}

func magnitude(et domain.EventType, n int) float64 {
	switch et {
	case domain.EventHail:
		return hailSizes[n%len(hailSizes)]
	case domain.EventTornado:
		return tornadoRatings[n%len(tornadoRatings)]
	default:
		return windSpeeds[n%len(windSpeeds)]
	}
}

func appendN(dst []domain.EventType, t domain.EventType, n int) []domain.EventType {
	for range n {
		dst = append(dst, t)
	}
	return dst
}
