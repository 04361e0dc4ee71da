package domain

import "time"

// DateLayout is the calendar date format used by the date selector and the
// stats date range.
const DateLayout = "2006-01-02"

// ReportBatch holds every report for one loaded UTC day.
type ReportBatch struct {
	Date        time.Time // midnight UTC
	Reports     []Report
	LastUpdated time.Time // zero when the query service did not say
}

// NewReportBatch builds a batch for the day containing date. Reports whose
// timestamp falls outside [DayStart, DayEnd) are dropped; the number dropped
// is returned so callers can log it.
func NewReportBatch(date time.Time, reports []Report, lastUpdated time.Time) (ReportBatch, int) {
	b := ReportBatch{Date: DayOf(date), LastUpdated: lastUpdated}
	start, end := b.DayStart(), b.DayEnd()

	kept := make([]Report, 0, len(reports))
	for _, r := range reports {
		if r.Timestamp.Before(start) || !r.Timestamp.Before(end) {
			continue
		}
		kept = append(kept, r)
	}
	b.Reports = kept
	return b, len(reports) - len(kept)
}

// Count returns the number of reports in the batch.
func (b ReportBatch) Count() int { return len(b.Reports) }

// DayStart is the inclusive start of the batch window.
func (b ReportBatch) DayStart() time.Time { return b.Date }

// DayEnd is the exclusive end of the batch window.
func (b ReportBatch) DayEnd() time.Time { return b.Date.AddDate(0, 0, 1) }

// DayOf truncates t to midnight UTC of its calendar day.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date as a UTC day.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
