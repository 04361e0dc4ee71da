package domain

import (
	"strings"
	"time"
)

// EventType is the kind of storm event a report describes.
type EventType string

const (
	EventHail    EventType = "hail"
	EventTornado EventType = "tornado"
	EventWind    EventType = "wind"
)

// EventTypes lists every event type in rendering order. Timeline segments and
// per-type stats are always emitted in this order.
var EventTypes = []EventType{EventHail, EventTornado, EventWind}

// ParseEventType accepts the dashboard form ("hail") and the GraphQL enum
// form ("HAIL").
func ParseEventType(s string) (EventType, bool) {
	switch t := EventType(strings.ToLower(strings.TrimSpace(s))); t {
	case EventHail, EventTornado, EventWind:
		return t, true
	default:
		return "", false
	}
}

// Upper returns the event type as shown in marker popups, e.g. "HAIL".
func (t EventType) Upper() string {
	return strings.ToUpper(string(t))
}

// Severity is the coarse two-level classification used by the severity filter.
type Severity string

const (
	SeveritySevere    Severity = "severe"
	SeverityNonSevere Severity = "non-severe"
)

// ParseSeverity accepts "severe" and "non-severe" in any case.
func ParseSeverity(s string) (Severity, bool) {
	switch v := Severity(strings.ToLower(strings.TrimSpace(s))); v {
	case SeveritySevere, SeverityNonSevere:
		return v, true
	default:
		return "", false
	}
}

// Report is one severe-weather observation. Reports are immutable once they
// are part of a batch.
type Report struct {
	ID           string    `json:"id"`
	EventType    EventType `json:"eventType"`
	State        string    `json:"state"`
	County       string    `json:"county"`
	Location     string    `json:"location,omitempty"`
	Severity     Severity  `json:"severity"`
	Magnitude    float64   `json:"magnitude"`
	Unit         string    `json:"unit"`
	Timestamp    time.Time `json:"timestamp"`
	Lat          float64   `json:"lat"`
	Lon          float64   `json:"lon"`
	SourceOffice string    `json:"sourceOffice,omitempty"`
	Comments     string    `json:"comments,omitempty"`
}

// ClassifyReport fills the fields the dashboard derives itself: the default
// unit for the event type and the severity class.
func ClassifyReport(r Report) Report {
	r.Unit = defaultUnit(r.EventType, r.Unit)
	r.Severity = DeriveSeverity(r.EventType, r.Magnitude)
	return r
}

// defaultUnit infers the unit when the payload omits one.
func defaultUnit(eventType EventType, unit string) string {
	unit = strings.ToLower(strings.TrimSpace(unit))
	if unit != "" {
		return unit
	}

	switch eventType {
	case EventHail:
		return "in"
	case EventWind:
		return "mph"
	case EventTornado:
		return "f_scale"
	default:
		return ""
	}
}
