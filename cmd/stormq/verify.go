package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/couchcryptid/storm-data-dashboard/internal/aggregate"
	"github.com/couchcryptid/storm-data-dashboard/internal/domain"
	"github.com/couchcryptid/storm-data-dashboard/internal/filter"
	"github.com/spf13/cobra"
)

var errVerifyFailed = errors.New("verification failed")

// phase tracks pass/fail for a verification phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func newVerifyCmd(opts *options) *cobra.Command {
	var (
		date        string
		expectTotal int
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that every dashboard view agrees for a date",
		Long: `Verify loads one day and checks the batch, the filter options and every
derived view under each type, state and severity combination. Stats, timeline,
markers and table must always count the same reports.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			day, err := domain.ParseDate(date)
			if err != nil {
				return fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", date)
			}
			batch, err := opts.client().LoadBatch(cmd.Context(), day)
			if err != nil {
				return err
			}

			phases := []*phase{
				verifyBatch(batch, expectTotal),
				verifyOptions(batch),
				verifyViews(batch),
			}
			if !report(cmd.OutOrStdout(), batch, phases) {
				return errVerifyFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "report day, YYYY-MM-DD (required)")
	cmd.Flags().IntVar(&expectTotal, "expect-total", -1, "fail unless the day has exactly this many reports")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func verifyBatch(batch domain.ReportBatch, expectTotal int) *phase {
	p := &phase{name: "Batch integrity"}
	if expectTotal >= 0 && batch.Count() != expectTotal {
		p.errorf("expected %d reports, got %d", expectTotal, batch.Count())
	}

	seen := make(map[string]bool, batch.Count())
	for _, r := range batch.Reports {
		if r.ID == "" {
			p.errorf("report with empty id at %s", r.Timestamp.Format("15:04"))
		} else if seen[r.ID] {
			p.errorf("duplicate id %s", r.ID)
		}
		seen[r.ID] = true

		if _, ok := domain.ParseEventType(string(r.EventType)); !ok {
			p.errorf("%s: unknown event type %q", r.ID, r.EventType)
		}
		if r.Timestamp.Before(batch.DayStart()) || !r.Timestamp.Before(batch.DayEnd()) {
			p.errorf("%s: timestamp %s outside %s", r.ID, r.Timestamp.Format("2006-01-02T15:04Z07:00"), batch.Date.Format(domain.DateLayout))
		}
		if r.Severity != domain.DeriveSeverity(r.EventType, r.Magnitude) {
			p.errorf("%s: severity %q does not match magnitude %g", r.ID, r.Severity, r.Magnitude)
		}
	}
	return p
}

func verifyOptions(batch domain.ReportBatch) *phase {
	p := &phase{name: "Filter options"}

	stateTotal := 0
	for _, st := range filter.States(batch) {
		inState := filter.Apply(batch, filter.Filter{State: st})
		stateTotal += len(inState)

		countyTotal := 0
		for _, c := range filter.Counties(batch, st) {
			f := filter.Filter{State: st, County: c}
			if !filter.Valid(f, &batch) {
				p.errorf("%s/%s offered but not selectable", st, c)
			}
			countyTotal += len(filter.Apply(batch, f))
		}
		if countyTotal != len(inState) {
			p.errorf("%s: counties cover %d of %d reports", st, countyTotal, len(inState))
		}
	}
	if stateTotal != batch.Count() {
		p.errorf("states cover %d of %d reports", stateTotal, batch.Count())
	}
	return p
}

func verifyViews(batch domain.ReportBatch) *phase {
	p := &phase{name: "View consistency"}

	types := append([]domain.EventType{""}, domain.EventTypes...)
	states := append([]string{""}, filter.States(batch)...)
	severities := []domain.Severity{"", domain.SeveritySevere, domain.SeverityNonSevere}

	for _, t := range types {
		for _, st := range states {
			for _, sev := range severities {
				f := filter.Filter{Type: t, State: st, Severity: sev}
				checkView(p, batch, f)
			}
		}
	}
	return p
}

func checkView(p *phase, batch domain.ReportBatch, f filter.Filter) {
	view := filter.Apply(batch, f)
	stats := aggregate.ComputeStats(batch, view)
	timeline := aggregate.TimelineTotal(aggregate.Timeline(view, nil))
	markers := len(aggregate.Markers(view, aggregate.ColorByType))

	if stats.Total != len(view) || timeline != len(view) || markers != len(view) {
		p.errorf("%s: stats %d, timeline %d, markers %d, rows %d",
			describeFilter(f), stats.Total, timeline, markers, len(view))
	}
	byType := 0
	for _, n := range stats.ByType {
		byType += n
	}
	if byType != stats.Total {
		p.errorf("%s: per-type counts sum to %d of %d", describeFilter(f), byType, stats.Total)
	}
}

func report(w io.Writer, batch domain.ReportBatch, phases []*phase) bool {
	fmt.Fprintf(w, "=== Dashboard view verification: %s ===\n\n", batch.Date.Format(domain.DateLayout))

	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-24s %s\n", p.name, status)
	}
	fmt.Fprintf(w, "\nReports: %d\n", batch.Count())

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll checks passed.")
	} else {
		fmt.Fprintln(w, "\nVerification FAILED.")
	}
	return allPassed
}
