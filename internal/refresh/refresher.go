// Package refresh keeps the dashboard current while the ETL keeps publishing.
// Notifications for the shown day invalidate its cached batch and trigger a
// debounced reload; notifications for other days only invalidate the cache.
package refresh

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-data-dashboard/internal/dashboard"
	"github.com/couchcryptid/storm-data-dashboard/internal/domain"
	"github.com/couchcryptid/storm-data-dashboard/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Source yields new-data notifications, blocking until one arrives.
type Source interface {
	Next(ctx context.Context) (domain.Notification, error)
}

// Invalidator drops a cached batch.
type Invalidator interface {
	Invalidate(date time.Time) bool
}

// Views is the dashboard state being refreshed.
type Views interface {
	ActiveDate() (time.Time, bool)
	Reload(ctx context.Context) (dashboard.Snapshot, error)
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithClock replaces the clock used for the debounce timer.
func WithClock(c clockwork.Clock) Option {
	return func(r *Refresher) { r.clock = c }
}

// Refresher orchestrates the notify, invalidate and reload loop.
type Refresher struct {
	source   Source
	cache    Invalidator
	views    Views
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    clockwork.Clock
	debounce time.Duration
}

// New creates a Refresher. cache may be nil when batches are not cached.
func New(source Source, cache Invalidator, views Views, logger *slog.Logger, metrics *observability.Metrics, debounce time.Duration, opts ...Option) *Refresher {
	r := &Refresher{
		source:   source,
		cache:    cache,
		views:    views,
		logger:   logger,
		metrics:  metrics,
		clock:    clockwork.NewRealClock(),
		debounce: debounce,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run consumes notifications until the context is cancelled. The first
// notification for the shown day starts the debounce timer; later ones
// arriving before it fires are folded into the same reload.
func (r *Refresher) Run(ctx context.Context) error {
	r.logger.Info("live refresh started", "debounce", r.debounce)
	r.metrics.RefreshRunning.Set(1)
	defer r.metrics.RefreshRunning.Set(0)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dates := make(chan time.Time)
	go r.consume(ctx, dates)

	var (
		timer   clockwork.Timer
		fire    <-chan time.Time
		pending time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			r.logger.Info("live refresh stopping", "reason", ctx.Err())
			return nil
		case day := <-dates:
			r.invalidate(day)
			if fire != nil || !r.isActive(day) {
				continue
			}
			pending = day
			timer = r.clock.NewTimer(r.debounce)
			fire = timer.Chan()
		case <-fire:
			fire = nil
			r.reload(ctx, pending)
		}
	}
}

// consume reads notifications and forwards dated ones, backing off while the
// source is failing.
func (r *Refresher) consume(ctx context.Context, out chan<- time.Time) {
	backoff := initialBackoff
	for {
		n, err := r.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.Error("read notification failed", "error", err, "backoff", backoff)
			if !retry.SleepWithContext(ctx, backoff) {
				return
			}
			backoff = retry.NextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = initialBackoff
		r.metrics.RefreshNotifications.Inc()

		if n.Dated() {
			select {
			case out <- n.Date:
			case <-ctx.Done():
				return
			}
		}
		r.commit(ctx, n)
	}
}

func (r *Refresher) reload(ctx context.Context, day time.Time) {
	if !r.isActive(day) {
		r.logger.Debug("shown date changed before refresh, skipping", "date", day.Format(domain.DateLayout))
		return
	}
	// Drop anything a user request cached while the timer was running.
	r.invalidate(day)

	_, err := r.views.Reload(ctx)
	switch {
	case err == nil:
		r.metrics.RefreshReloads.WithLabelValues("success").Inc()
		r.logger.Info("refreshed shown date", "date", day.Format(domain.DateLayout))
	case errors.Is(err, dashboard.ErrSuperseded):
		r.metrics.RefreshReloads.WithLabelValues("superseded").Inc()
	case ctx.Err() != nil:
	default:
		r.metrics.RefreshReloads.WithLabelValues("error").Inc()
		r.logger.Error("refresh reload failed", "date", day.Format(domain.DateLayout), "error", err)
	}
}

func (r *Refresher) isActive(day time.Time) bool {
	active, ok := r.views.ActiveDate()
	return ok && active.Equal(day)
}

func (r *Refresher) invalidate(day time.Time) {
	if r.cache == nil {
		return
	}
	if r.cache.Invalidate(day) {
		r.logger.Debug("invalidated cached batch", "date", day.Format(domain.DateLayout))
	}
}

// commit acknowledges the notification if a commit function is available.
func (r *Refresher) commit(ctx context.Context, n domain.Notification) {
	if n.Commit == nil {
		return
	}
	if err := n.Commit(ctx); err != nil {
		r.logger.Warn("commit offset failed", "error", err,
			"topic", n.Topic, "partition", n.Partition, "offset", n.Offset)
	}
}
