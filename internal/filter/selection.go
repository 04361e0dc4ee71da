package filter

import (
	"errors"
	"fmt"
	"slices"

	"github.com/couchcryptid/storm-data-dashboard/internal/domain"
)

// ErrInvalidCascade is returned when a county is chosen that the county
// control would not offer: no state is selected, or the county is not one of
// the selected state's counties. The selection is left unchanged.
var ErrInvalidCascade = errors.New("county is not selectable for the current state")

// Field names one filter control.
type Field string

const (
	FieldType     Field = "type"
	FieldState    Field = "state"
	FieldCounty   Field = "county"
	FieldSeverity Field = "severity"
)

// ParseField validates a field name.
func ParseField(s string) (Field, error) {
	switch f := Field(s); f {
	case FieldType, FieldState, FieldCounty, FieldSeverity:
		return f, nil
	default:
		return "", fmt.Errorf("unknown filter field %q", s)
	}
}

// Update carries the fields changed by one operator gesture. Nil fields are
// left alone; a pointer to "" resets the field to "All".
type Update struct {
	Type     *domain.EventType
	State    *string
	County   *string
	Severity *domain.Severity
}

// Selection is the current filter plus the county-depends-on-state rule.
// Every mutator finishes by evaluating the validity predicate, so a Selection
// never holds a county the county control would not offer. A nil batch means
// no data is loaded yet; only the structural half of the rule applies then.
//
// Selection is not safe for concurrent use; the owner serializes access.
type Selection struct {
	f Filter
}

// Filter returns a copy of the current filter.
func (s *Selection) Filter() Filter { return s.f }

// CountyEnabled reports whether the county control accepts input.
func (s *Selection) CountyEnabled() bool { return s.f.State != "" }

// SetType selects an event type. It has no cascading effects.
func (s *Selection) SetType(t domain.EventType) { s.f.Type = t }

// SetSeverity selects a severity. It has no cascading effects.
func (s *Selection) SetSeverity(v domain.Severity) { s.f.Severity = v }

// SetState selects a state; "" clears it. A county that is no longer valid
// for the new state is cleared.
func (s *Selection) SetState(code string, batch *domain.ReportBatch) {
	s.f.State = code
	s.Revalidate(batch)
}

// SetCounty selects a county; "" clears it. It returns ErrInvalidCascade and
// changes nothing when the county is not selectable.
func (s *Selection) SetCounty(code string, batch *domain.ReportBatch) error {
	next := s.f
	next.County = code
	if !Valid(next, batch) {
		return ErrInvalidCascade
	}
	s.f = next
	return nil
}

// Reset clears one field to "All" and reruns the cascade.
func (s *Selection) Reset(field Field, batch *domain.ReportBatch) {
	switch field {
	case FieldType:
		s.f.Type = ""
	case FieldState:
		s.f.State = ""
	case FieldCounty:
		s.f.County = ""
	case FieldSeverity:
		s.f.Severity = ""
	}
	s.Revalidate(batch)
}

// Apply applies an Update in control order: type, state, severity, county.
// The update is all or nothing: when the county is rejected no field changes.
func (s *Selection) Apply(u Update, batch *domain.ReportBatch) error {
	next := *s
	if u.Type != nil {
		next.SetType(*u.Type)
	}
	if u.State != nil {
		next.SetState(*u.State, batch)
	}
	if u.Severity != nil {
		next.SetSeverity(*u.Severity)
	}
	if u.County != nil {
		if err := next.SetCounty(*u.County, batch); err != nil {
			return err
		}
	}
	*s = next
	return nil
}

// Revalidate clears the county when it violates the cascade, e.g. after the
// state changed or a new batch was loaded. It reports whether anything changed.
func (s *Selection) Revalidate(batch *domain.ReportBatch) bool {
	if Valid(s.f, batch) {
		return false
	}
	s.f.County = ""
	return true
}

// Valid is the cascade predicate: a county requires a state and, once a batch
// is loaded, must be one of that state's counties.
func Valid(f Filter, batch *domain.ReportBatch) bool {
	if f.County == "" {
		return true
	}
	if f.State == "" {
		return false
	}
	if batch == nil {
		return true
	}
	return slices.Contains(Counties(*batch, f.State), f.County)
}
