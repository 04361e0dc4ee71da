// Package domain models the storm reports shown on the dashboard.
//
// # Data Source
//
// Reports are read from the storm data API (GraphQL), which serves events
// that the upstream ETL service has already parsed, normalized, and enriched
// from the NOAA Storm Prediction Center (SPC) daily CSV files. The dashboard
// loads one UTC calendar day at a time into an immutable [ReportBatch].
//
// # Magnitude Units
//
//	Hail:    inches of diameter, e.g. 1.75
//	Tornado: Enhanced Fujita ordinal, 0–5
//	Wind:    mph
//
// A magnitude of 0 means the source reported "UNK" or left the field empty.
//
// # Severity
//
// The dashboard filters on a two-level severity that is derived from magnitude
// rather than read from the payload, so the filter engine stays a pure
// function of the report. The derivation reuses the ETL service's four-level
// intensity scale and collapses it:
//
//	  Hail:    <0.75" minor | <1.5" moderate | <2.5" severe | ≥2.5" extreme
//	  Wind:    <50 mph minor | <74 mph moderate | <96 mph severe | ≥96 mph extreme
//	  Tornado: EF0–1 minor | EF2 moderate | EF3–4 severe | EF5 extreme
//
//	severe     = intensity severe or extreme
//	non-severe = everything else, including unknown magnitudes
//
// # Time
//
// Batch windows are UTC days: [00:00, 24:00). Hour-of-day grouping for the
// timeline is done by the aggregate package in a configurable location.
package domain
