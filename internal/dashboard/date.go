package dashboard

import (
	"errors"
	"time"

	"github.com/couchcryptid/storm-data-dashboard/internal/domain"
)

// ErrInvalidRange is returned when the range end is before its start.
var ErrInvalidRange = errors.New("end date is before start date")

// DateSelector holds the date picker state. A range can be shown, but the
// loaded batch is always the single day From.
type DateSelector struct {
	From  time.Time
	To    time.Time
	Range bool
}

// DateView is the date picker as rendered.
type DateView struct {
	From  string `json:"from,omitempty"`
	To    string `json:"to,omitempty"`
	Range bool   `json:"range"`
}

// Selected reports whether a date has been chosen.
func (d DateSelector) Selected() bool { return !d.From.IsZero() }

// Next validates a new picker state and returns it normalized to UTC days. A
// zero to, or a disabled range, collapses to from.
func (d DateSelector) Next(from, to time.Time, rangeOn bool) (DateSelector, error) {
	from = domain.DayOf(from)
	if to.IsZero() || !rangeOn {
		to = from
	}
	to = domain.DayOf(to)
	if to.Before(from) {
		return d, ErrInvalidRange
	}
	return DateSelector{From: from, To: to, Range: rangeOn}, nil
}

// NeedsReload reports whether moving from d to next changes what is loaded.
// Collapsing the range always reloads; widening or narrowing it does not.
func (d DateSelector) NeedsReload(next DateSelector) bool {
	if !d.From.Equal(next.From) {
		return true
	}
	return d.Range && !next.Range
}

// View renders the selector.
func (d DateSelector) View() DateView {
	if !d.Selected() {
		return DateView{Range: d.Range}
	}
	return DateView{
		From:  d.From.Format(domain.DateLayout),
		To:    d.To.Format(domain.DateLayout),
		Range: d.Range,
	}
}
