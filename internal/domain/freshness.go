package domain

import (
	"fmt"
	"time"
)

// Freshness classes shown on the data freshness badge.
const (
	FreshnessOK    = "ok"
	FreshnessWarn  = "warn"
	FreshnessStale = "stale"
	FreshnessErr   = "err"
)

// Freshness describes how far behind the loaded data is.
type Freshness struct {
	Lag   time.Duration `json:"-"`
	Label string        `json:"label"` // "42m" or "3h 5m"; empty when unknown
	Class string        `json:"class"`
}

// FreshnessOf computes the lag between lastUpdated and now. A zero
// lastUpdated yields the error class.
func FreshnessOf(lastUpdated time.Time) Freshness {
	if lastUpdated.IsZero() {
		return Freshness{Class: FreshnessErr}
	}

	lag := clock.Since(lastUpdated)
	if lag < 0 {
		lag = 0
	}

	f := Freshness{Lag: lag, Label: formatLag(lag)}
	switch {
	case lag < time.Hour:
		f.Class = FreshnessOK
	case lag < 6*time.Hour:
		f.Class = FreshnessWarn
	default:
		f.Class = FreshnessStale
	}
	return f
}

func formatLag(lag time.Duration) string {
	mins := int(lag / time.Minute)
	if mins < 60 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dh %dm", mins/60, mins%60)
}
