package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/couchcryptid/storm-data-dashboard/internal/aggregate"
	"github.com/couchcryptid/storm-data-dashboard/internal/domain"
	"github.com/couchcryptid/storm-data-dashboard/internal/filter"
	"github.com/spf13/cobra"
)

type summaryFlags struct {
	date     string
	typ      string
	state    string
	county   string
	severity string
	json     bool
}

// summary is what the dashboard cards and timeline would show.
type summary struct {
	Date      string             `json:"date"`
	Filter    filter.Filter      `json:"filter"`
	Loaded    int                `json:"loaded"`
	Stats     aggregate.Stats    `json:"stats"`
	DateRange string             `json:"dateRange"`
	Timeline  []aggregate.Bucket `json:"timeline"`
}

func newSummaryCmd(opts *options) *cobra.Command {
	var f summaryFlags

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print filtered stats and the hourly timeline for a date",
		Long: `Summary loads every report for one UTC day, applies the same filters as the
dashboard toolbar and prints the stats cards and hourly timeline.

Examples:
  stormq summary --date 2024-04-26
  stormq summary --date 2024-04-26 --type tornado --state IA
  stormq summary --date 2024-04-26 --state NE --county Douglas --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			date, err := domain.ParseDate(f.date)
			if err != nil {
				return fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", f.date)
			}
			u, err := f.update()
			if err != nil {
				return err
			}

			batch, err := opts.client().LoadBatch(cmd.Context(), date)
			if err != nil {
				return err
			}
			s, err := summarize(batch, u, opts.cfg.TimelineZone)
			if err != nil {
				return err
			}

			if f.json {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}
			printSummary(cmd.OutOrStdout(), s)
			return nil
		},
	}

	cmd.Flags().StringVar(&f.date, "date", "", "report day, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&f.typ, "type", "", "event type (hail|tornado|wind)")
	cmd.Flags().StringVar(&f.state, "state", "", "two-letter state code")
	cmd.Flags().StringVar(&f.county, "county", "", "county name; requires --state")
	cmd.Flags().StringVar(&f.severity, "severity", "", "severity (severe|non-severe)")
	cmd.Flags().BoolVar(&f.json, "json", false, "print JSON instead of a table")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func (f summaryFlags) update() (filter.Update, error) {
	var u filter.Update
	if f.typ != "" {
		t, ok := domain.ParseEventType(f.typ)
		if !ok {
			return u, fmt.Errorf("invalid --type %q", f.typ)
		}
		u.Type = &t
	}
	if f.state != "" {
		st := strings.ToUpper(f.state)
		u.State = &st
	}
	if f.county != "" {
		u.County = &f.county
	}
	if f.severity != "" {
		sev, ok := domain.ParseSeverity(f.severity)
		if !ok {
			return u, fmt.Errorf("invalid --severity %q", f.severity)
		}
		u.Severity = &sev
	}
	return u, nil
}

// summarize applies u to batch through the same cascade the toolbar uses.
func summarize(batch domain.ReportBatch, u filter.Update, loc *time.Location) (summary, error) {
	var sel filter.Selection
	if err := sel.Apply(u, &batch); err != nil {
		return summary{}, fmt.Errorf("--county %q: %w", *u.County, err)
	}

	view := filter.Apply(batch, sel.Filter())
	stats := aggregate.ComputeStats(batch, view)
	return summary{
		Date:      batch.Date.Format(domain.DateLayout),
		Filter:    sel.Filter(),
		Loaded:    batch.Count(),
		Stats:     stats,
		DateRange: stats.DateRange.String(),
		Timeline:  aggregate.Timeline(view, loc),
	}, nil
}

func printSummary(w io.Writer, s summary) {
	fmt.Fprintf(w, "%d reports loaded for %s\n", s.Loaded, s.Date)
	if !s.Filter.IsZero() {
		fmt.Fprintf(w, "Filter: %s\n", describeFilter(s.Filter))
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Total\t%d\t%s\n", s.Stats.Total, s.DateRange)
	for _, t := range domain.EventTypes {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", aggregate.TypeLabel(t), s.Stats.ByType[t], s.Stats.MaxLabel(t))
	}
	tw.Flush() //nolint:errcheck // writes to an in-memory or terminal writer

	if len(s.Timeline) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "Hour\t")
	for _, t := range domain.EventTypes {
		fmt.Fprintf(tw, "%s\t", aggregate.TypeLabel(t))
	}
	fmt.Fprint(tw, "Total\t\n")
	for _, b := range s.Timeline {
		fmt.Fprintf(tw, "%02d:00\t", b.Hour)
		for _, seg := range b.Segments {
			fmt.Fprintf(tw, "%d\t", seg.Count)
		}
		fmt.Fprintf(tw, "%d\t\n", b.Total)
	}
	tw.Flush() //nolint:errcheck // writes to an in-memory or terminal writer
}

func describeFilter(f filter.Filter) string {
	var parts []string
	if f.Type != "" {
		parts = append(parts, "type="+string(f.Type))
	}
	if f.State != "" {
		parts = append(parts, "state="+f.State)
	}
	if f.County != "" {
		parts = append(parts, "county="+f.County)
	}
	if f.Severity != "" {
		parts = append(parts, "severity="+string(f.Severity))
	}
	return strings.Join(parts, " ")
}
