package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventType(t *testing.T) {
	tests := []struct {
		in   string
		want EventType
		ok   bool
	}{
		{"hail", EventHail, true},
		{"HAIL", EventHail, true},
		{" Tornado ", EventTornado, true},
		{"wind", EventWind, true},
		{"snow", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseEventType(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSeverity(t *testing.T) {
	s, ok := ParseSeverity("SEVERE")
	assert.True(t, ok)
	assert.Equal(t, SeveritySevere, s)

	s, ok = ParseSeverity("non-severe")
	assert.True(t, ok)
	assert.Equal(t, SeverityNonSevere, s)

	_, ok = ParseSeverity("moderate")
	assert.False(t, ok)
}

func TestDeriveIntensity(t *testing.T) {
	tests := []struct {
		name      string
		eventType EventType
		magnitude float64
		want      Intensity
	}{
		{"unknown magnitude", EventHail, 0, IntensityUnknown},
		{"small hail", EventHail, 0.5, IntensityMinor},
		{"quarter hail", EventHail, 1.0, IntensityModerate},
		{"golf ball hail", EventHail, 1.75, IntensitySevere},
		{"softball hail", EventHail, 4.25, IntensityExtreme},
		{"gust", EventWind, 45, IntensityMinor},
		{"severe gust", EventWind, 60, IntensityModerate},
		{"hurricane force", EventWind, 80, IntensitySevere},
		{"extreme wind", EventWind, 100, IntensityExtreme},
		{"EF1", EventTornado, 1, IntensityMinor},
		{"EF2", EventTornado, 2, IntensityModerate},
		{"EF3", EventTornado, 3, IntensitySevere},
		{"EF5", EventTornado, 5, IntensityExtreme},
		{"unrecognized type", EventType("snow"), 3, IntensityUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveIntensity(tt.eventType, tt.magnitude))
		})
	}
}

func TestDeriveSeverity(t *testing.T) {
	assert.Equal(t, SeveritySevere, DeriveSeverity(EventHail, 1.75))
	assert.Equal(t, SeveritySevere, DeriveSeverity(EventTornado, 5))
	assert.Equal(t, SeverityNonSevere, DeriveSeverity(EventHail, 1.25))
	assert.Equal(t, SeverityNonSevere, DeriveSeverity(EventWind, 0))
}

func TestClassifyReport(t *testing.T) {
	r := ClassifyReport(Report{EventType: EventTornado, Magnitude: 3})
	assert.Equal(t, "f_scale", r.Unit)
	assert.Equal(t, SeveritySevere, r.Severity)

	r = ClassifyReport(Report{EventType: EventWind, Magnitude: 65, Unit: "MPH"})
	assert.Equal(t, "mph", r.Unit)
	assert.Equal(t, SeverityNonSevere, r.Severity)
}

func TestNewReportBatch_DropsReportsOutsideDay(t *testing.T) {
	day := time.Date(2024, time.April, 26, 0, 0, 0, 0, time.UTC)
	reports := []Report{
		{ID: "before", Timestamp: day.Add(-time.Minute)},
		{ID: "start", Timestamp: day},
		{ID: "late", Timestamp: day.Add(23*time.Hour + 59*time.Minute)},
		{ID: "end", Timestamp: day.AddDate(0, 0, 1)},
	}

	batch, dropped := NewReportBatch(day.Add(15*time.Hour), reports, time.Time{})

	assert.Equal(t, 2, dropped)
	assert.Equal(t, day, batch.Date)
	require.Equal(t, 2, batch.Count())
	assert.Equal(t, "start", batch.Reports[0].ID)
	assert.Equal(t, "late", batch.Reports[1].ID)
	assert.Equal(t, day.AddDate(0, 0, 1), batch.DayEnd())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-04-26")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.April, 26, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("04/26/2024")
	assert.Error(t, err)
}

func TestFreshnessOf(t *testing.T) {
	now := time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(now))
	t.Cleanup(func() { SetClock(nil) })

	tests := []struct {
		name        string
		lastUpdated time.Time
		label       string
		class       string
	}{
		{"unknown", time.Time{}, "", FreshnessErr},
		{"minutes", now.Add(-42 * time.Minute), "42m", FreshnessOK},
		{"hours", now.Add(-(3*time.Hour + 5*time.Minute)), "3h 5m", FreshnessWarn},
		{"stale", now.Add(-26 * time.Hour), "26h 0m", FreshnessStale},
		{"future clamps to zero", now.Add(time.Minute), "0m", FreshnessOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := FreshnessOf(tt.lastUpdated)
			assert.Equal(t, tt.label, f.Label)
			assert.Equal(t, tt.class, f.Class)
		})
	}
}
