package domain

// Intensity is the four-level scale the ETL service assigns from magnitude.
type Intensity int

const (
	IntensityUnknown Intensity = iota
	IntensityMinor
	IntensityModerate
	IntensitySevere
	IntensityExtreme
)

// DeriveIntensity maps magnitude to an intensity level based on operational
// thresholds informed by NWS Severe Weather Criteria and the Enhanced Fujita Scale:
//   - hail: <0.75in minor, <1.5in moderate, <2.5in severe, else extreme
//   - wind: <50mph minor, <74mph moderate, <96mph severe, else extreme
//   - tornado: EF0-1 minor, EF2 moderate, EF3-4 severe, EF5 extreme
//
// Returns IntensityUnknown when magnitude is 0 or the event type is unrecognized.
func DeriveIntensity(eventType EventType, magnitude float64) Intensity {
	if magnitude == 0 {
		return IntensityUnknown
	}

	switch eventType {
	case EventHail:
		switch {
		case magnitude < 0.75:
			return IntensityMinor
		case magnitude < 1.5:
			return IntensityModerate
		case magnitude < 2.5:
			return IntensitySevere
		default:
			return IntensityExtreme
		}
	case EventWind:
		switch {
		case magnitude < 50:
			return IntensityMinor
		case magnitude < 74:
			return IntensityModerate
		case magnitude < 96:
			return IntensitySevere
		default:
			return IntensityExtreme
		}
	case EventTornado:
		switch {
		case magnitude <= 1:
			return IntensityMinor
		case magnitude == 2:
			return IntensityModerate
		case magnitude <= 4:
			return IntensitySevere
		default:
			return IntensityExtreme
		}
	default:
		return IntensityUnknown
	}
}

// DeriveSeverity collapses intensity to the dashboard's two-level severity.
func DeriveSeverity(eventType EventType, magnitude float64) Severity {
	if DeriveIntensity(eventType, magnitude) >= IntensitySevere {
		return SeveritySevere
	}
	return SeverityNonSevere
}
