// Package dashboard owns the dashboard state: the loaded report batch, the
// filter selection, the date picker and the map color mode. Every mutation
// runs one synchronous recomputation cycle that filters the batch, derives
// stats, timeline, markers and rows from the same view, and publishes the
// result to subscribers as a single Snapshot.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/storm-data-dashboard/internal/aggregate"
	"github.com/couchcryptid/storm-data-dashboard/internal/domain"
	"github.com/couchcryptid/storm-data-dashboard/internal/filter"
	"github.com/couchcryptid/storm-data-dashboard/internal/observability"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrNotLoaded is returned when an operation needs a batch and none has
	// loaded yet.
	ErrNotLoaded = errors.New("no report batch loaded")
	// ErrUnknownReport is returned for a marker id that is not in the
	// current filtered view.
	ErrUnknownReport = errors.New("unknown report")
	// ErrSuperseded is returned by a load whose result was discarded because
	// a newer date selection started after it.
	ErrSuperseded = errors.New("load superseded by a newer selection")
)

// Loader fetches report batches from the query service.
type Loader interface {
	LoadBatch(ctx context.Context, date time.Time) (domain.ReportBatch, error)
	LatestDate(ctx context.Context) (time.Time, error)
}

// Option configures a ViewSync.
type Option func(*ViewSync)

// WithGeocoder enables place names in marker popups.
func WithGeocoder(g domain.Geocoder) Option {
	return func(v *ViewSync) { v.geocoder = g }
}

// WithLocation sets the zone used for hour-of-day timeline buckets.
func WithLocation(loc *time.Location) Option {
	return func(v *ViewSync) { v.loc = loc }
}

// WithClock replaces the clock used for the "today" fallback date.
func WithClock(c clockwork.Clock) Option {
	return func(v *ViewSync) { v.clock = c }
}

// ViewSync is the single owner of dashboard state. It is safe for concurrent
// use; mutations are serialized so no two recomputations overlap.
type ViewSync struct {
	loader   Loader
	geocoder domain.Geocoder
	logger   *slog.Logger
	metrics  *observability.Metrics
	loc      *time.Location
	clock    clockwork.Clock

	mu      sync.Mutex
	phase   Phase
	batch   *domain.ReportBatch
	view    []domain.Report
	sel     filter.Selection
	mode    aggregate.ColorMode
	dates   DateSelector
	loadErr error
	gen     uint64
	snap    Snapshot
	subs    map[int]chan Snapshot
	nextSub int
}

// New creates an idle ViewSync. Nothing is loaded until Start or SetDate.
func New(loader Loader, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *ViewSync {
	v := &ViewSync{
		loader:  loader,
		logger:  logger,
		metrics: metrics,
		loc:     time.UTC,
		clock:   clockwork.NewRealClock(),
		phase:   PhaseIdle,
		mode:    aggregate.ColorByType,
		subs:    make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.snap = v.buildLocked(0)
	return v
}

// Start loads the initial date. A zero initial date asks the loader for the
// most recent report day and falls back to today (UTC) when it has none.
func (v *ViewSync) Start(ctx context.Context, initial time.Time) (Snapshot, error) {
	if initial.IsZero() {
		latest, err := v.loader.LatestDate(ctx)
		if err != nil {
			v.logger.Warn("latest report date lookup failed, using today", "error", err)
		}
		initial = latest
	}
	if initial.IsZero() {
		initial = v.clock.Now()
	}
	return v.SetDate(ctx, initial, time.Time{}, false)
}

// Snapshot returns the latest published snapshot with freshness recomputed
// against the current time.
func (v *ViewSync) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.currentLocked()
}

func (v *ViewSync) currentLocked() Snapshot {
	s := v.snap
	if v.batch != nil {
		s.Freshness = domain.FreshnessOf(v.batch.LastUpdated)
	}
	return s
}

// CheckReadiness returns nil once a batch has loaded.
func (v *ViewSync) CheckReadiness(_ context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.batch == nil {
		return ErrNotLoaded
	}
	return nil
}

// ActiveDate returns the day being shown, if one has been selected.
func (v *ViewSync) ActiveDate() (time.Time, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dates.From, v.dates.Selected()
}

// UpdateFilters applies one gesture's worth of filter changes as a single
// recomputation. A rejected county fails the whole update with
// filter.ErrInvalidCascade and the current snapshot is returned unchanged.
func (v *ViewSync) UpdateFilters(u filter.Update) (Snapshot, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.sel.Apply(u, v.batch); err != nil {
		return v.currentLocked(), err
	}
	v.recomputeLocked()
	return v.currentLocked(), nil
}

// ResetFilter clears one filter field to "All".
func (v *ViewSync) ResetFilter(field filter.Field) Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.sel.Reset(field, v.batch)
	v.recomputeLocked()
	return v.currentLocked()
}

// SetColorMode switches marker coloring. Only marker colors change.
func (v *ViewSync) SetColorMode(mode aggregate.ColorMode) Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.mode = mode
	v.recomputeLocked()
	return v.currentLocked()
}

// SetDate updates the date picker and, when the shown day changes or the
// range is collapsed, loads that day. A zero to means "same as from".
func (v *ViewSync) SetDate(ctx context.Context, from, to time.Time, rangeOn bool) (Snapshot, error) {
	v.mu.Lock()
	next, err := v.dates.Next(from, to, rangeOn)
	if err != nil {
		s := v.currentLocked()
		v.mu.Unlock()
		return s, err
	}
	reload := !v.dates.Selected() || v.dates.NeedsReload(next) || v.batch == nil
	v.dates = next
	if !reload {
		v.recomputeLocked()
		s := v.currentLocked()
		v.mu.Unlock()
		return s, nil
	}
	v.mu.Unlock()

	return v.load(ctx, next.From)
}

// Reload fetches the shown day again, e.g. after live refresh invalidated it.
func (v *ViewSync) Reload(ctx context.Context) (Snapshot, error) {
	v.mu.Lock()
	if !v.dates.Selected() {
		s := v.currentLocked()
		v.mu.Unlock()
		return s, ErrNotLoaded
	}
	day := v.dates.From
	v.mu.Unlock()

	return v.load(ctx, day)
}

// load fetches day outside the lock. Views keep showing the previous batch
// until the result is applied. A result that lost the race to a newer
// selection is discarded.
//
// The batch is shared by every subscriber, so the load ignores ctx
// cancellation: a caller that disconnects must not turn into a load failure
// for everyone. Each request is still bounded by the loader's own timeout.
func (v *ViewSync) load(ctx context.Context, day time.Time) (Snapshot, error) {
	ctx = context.WithoutCancel(ctx)

	v.mu.Lock()
	v.gen++
	gen := v.gen
	v.phase = PhaseLoading
	v.recomputeLocked()
	v.mu.Unlock()

	start := time.Now()
	batch, err := v.loader.LoadBatch(ctx, day)
	v.metrics.BatchLoadDuration.Observe(time.Since(start).Seconds())

	v.mu.Lock()
	defer v.mu.Unlock()

	if gen != v.gen {
		v.metrics.BatchLoads.WithLabelValues("superseded").Inc()
		v.logger.Debug("discarding superseded batch", "date", day.Format(domain.DateLayout))
		return v.currentLocked(), ErrSuperseded
	}

	if err != nil {
		v.loadErr = err
		v.phase = v.settledPhaseLocked()
		v.metrics.BatchLoads.WithLabelValues("error").Inc()
		v.logger.Error("load batch failed", "date", day.Format(domain.DateLayout), "error", err)
		v.recomputeLocked()
		return v.currentLocked(), fmt.Errorf("load %s: %w", day.Format(domain.DateLayout), err)
	}

	v.batch = &batch
	v.loadErr = nil
	if v.sel.Revalidate(v.batch) {
		v.logger.Info("county cleared, not present in new batch", "date", day.Format(domain.DateLayout))
	}
	v.phase = PhaseReady
	v.metrics.BatchReports.Set(float64(batch.Count()))
	v.recomputeLocked()

	outcome := "ready"
	if v.phase == PhaseEmpty {
		outcome = "empty"
	}
	v.metrics.BatchLoads.WithLabelValues(outcome).Inc()
	v.logger.Info("batch loaded", "date", day.Format(domain.DateLayout), "reports", batch.Count())
	return v.currentLocked(), nil
}

// settledPhaseLocked is the phase to fall back to when a load fails.
func (v *ViewSync) settledPhaseLocked() Phase {
	if v.batch == nil {
		return PhaseIdle
	}
	if len(v.view) == 0 {
		return PhaseEmpty
	}
	return PhaseReady
}

// MarkerDetail builds the popup for a marker in the current view. The place
// lookup runs outside the lock and degrades to no place on failure.
func (v *ViewSync) MarkerDetail(ctx context.Context, reportID string) (aggregate.Popup, error) {
	v.mu.Lock()
	if v.batch == nil {
		v.mu.Unlock()
		return aggregate.Popup{}, ErrNotLoaded
	}
	var (
		report domain.Report
		found  bool
	)
	for _, r := range v.view {
		if r.ID == reportID {
			report, found = r, true
			break
		}
	}
	v.mu.Unlock()

	if !found {
		return aggregate.Popup{}, fmt.Errorf("%w: %s", ErrUnknownReport, reportID)
	}

	popup := aggregate.PopupFor(report)
	popup.Place = domain.PlaceFor(ctx, report, v.geocoder, v.logger)
	return popup, nil
}

// Subscribe returns a channel that receives every published snapshot,
// starting with the current one. A slow subscriber only ever sees the most
// recent snapshot. Call the returned function to unsubscribe.
func (v *ViewSync) Subscribe() (<-chan Snapshot, func()) {
	v.mu.Lock()
	defer v.mu.Unlock()

	ch := make(chan Snapshot, 1)
	id := v.nextSub
	v.nextSub++
	v.subs[id] = ch
	ch <- v.currentLocked()

	return ch, func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if _, ok := v.subs[id]; ok {
			delete(v.subs, id)
			close(ch)
		}
	}
}

// recomputeLocked runs one filter, aggregate and publish cycle.
func (v *ViewSync) recomputeLocked() {
	start := time.Now()

	if v.batch != nil {
		v.view = filter.Apply(*v.batch, v.sel.Filter())
		if v.phase != PhaseLoading {
			v.phase = PhaseReady
			if len(v.view) == 0 {
				v.phase = PhaseEmpty
			}
		}
	}

	v.snap = v.buildLocked(v.snap.Seq + 1)
	v.publishLocked(v.currentLocked())

	v.metrics.Recomputations.Inc()
	v.metrics.FilteredReports.Set(float64(len(v.view)))
	v.metrics.RecomputeDuration.Observe(time.Since(start).Seconds())
}

func (v *ViewSync) buildLocked(seq uint64) Snapshot {
	f := v.sel.Filter()
	s := Snapshot{
		Seq:           seq,
		Phase:         v.phase,
		Date:          v.dates.View(),
		Filter:        f,
		CountyEnabled: v.sel.CountyEnabled(),
		ColorMode:     v.mode,
		Legend:        aggregate.Legend(),
		Freshness:     domain.Freshness{Class: domain.FreshnessErr},
	}

	var batch domain.ReportBatch
	if v.batch != nil {
		batch = *v.batch
		s.StateOptions = filter.States(batch)
		s.CountyOptions = filter.Counties(batch, f.State)
	}

	s.Stats = aggregate.ComputeStats(batch, v.view)
	s.MaxLabels = maxLabels(s.Stats)
	s.DateRange = s.Stats.DateRange.String()
	s.Timeline = aggregate.Timeline(v.view, v.loc)
	s.Markers = aggregate.Markers(v.view, v.mode)
	s.Rows = v.view

	switch {
	case v.loadErr != nil:
		s.Status = failedStatus(v.loadErr)
	case v.batch == nil:
		if v.phase == PhaseLoading {
			s.Status = Status{Text: StatusLoadingText, Class: StatusClassLoading}
		}
	default:
		s.Status = readyStatus(batch)
	}
	return s
}

func (v *ViewSync) publishLocked(s Snapshot) {
	for _, ch := range v.subs {
		// Drop a snapshot the subscriber has not read yet; only the latest matters.
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}
