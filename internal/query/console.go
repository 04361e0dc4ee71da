// Package query implements the ad hoc query console: a small state machine
// that sends operator-supplied query text to the query service and keeps the
// raw response with its wall-clock timing. It shares no state with the filter
// pipeline.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/storm-data-dashboard/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrBusy is returned when a run is submitted while another is in flight.
	ErrBusy = errors.New("a query is already running")
	// ErrReadOnly is returned when the text is edited or run before editing
	// has been enabled.
	ErrReadOnly = errors.New("query editing is disabled")
)

// DefaultQuery lists every report the query service holds.
const DefaultQuery = `{
  stormReports(filter: {
    timeRange: { from: "2020-01-01T00:00:00Z", to: "2030-01-01T00:00:00Z" }
  }) {
    totalCount
    hasMore
    reports {
      id
      eventType
      measurement { magnitude unit severity }
      beginTime
      location { name state county }
      geo { lat lon }
    }
  }
}`

// Status is the lifecycle phase of one execution.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Executor sends query text verbatim to the query service and returns the
// response body untouched.
type Executor interface {
	Execute(ctx context.Context, query string) (string, error)
}

// Execution is one submission and its outcome.
type Execution struct {
	ID        string    `json:"id,omitempty"`
	Query     string    `json:"query,omitempty"`
	Status    Status    `json:"status"`
	Result    string    `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"startedAt,omitzero"`
	ElapsedMs int64     `json:"elapsedMs"`
}

// Settled reports whether the execution finished, successfully or not.
func (e Execution) Settled() bool {
	return e.Status == StatusDone || e.Status == StatusError
}

// Timing renders the elapsed time as "<n>ms", or "" until the run settles.
func (e Execution) Timing() string {
	if !e.Settled() {
		return ""
	}
	return fmt.Sprintf("%dms", e.ElapsedMs)
}

// State is everything the console panel renders.
type State struct {
	Text      string    `json:"text"`
	Editable  bool      `json:"editable"`
	Expanded  bool      `json:"expanded"`
	CanRun    bool      `json:"canRun"`
	Execution Execution `json:"execution"`
	Timing    string    `json:"timing"`
}

// Option configures a Console.
type Option func(*Console)

// WithClock replaces the clock used to time executions.
func WithClock(c clockwork.Clock) Option {
	return func(con *Console) { con.clock = c }
}

// WithTimeout bounds each execution. Zero means no bound beyond the executor's own.
func WithTimeout(d time.Duration) Option {
	return func(con *Console) { con.timeout = d }
}

// Console runs at most one query at a time. It is safe for concurrent use.
type Console struct {
	executor Executor
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    clockwork.Clock
	timeout  time.Duration

	mu       sync.Mutex
	text     string
	editable bool
	expanded bool
	current  Execution
	settled  chan struct{}
}

// NewConsole creates an idle, read-only, collapsed console holding DefaultQuery.
func NewConsole(executor Executor, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Console {
	c := &Console{
		executor: executor,
		logger:   logger,
		metrics:  metrics,
		clock:    clockwork.NewRealClock(),
		text:     DefaultQuery,
		current:  Execution{Status: StatusIdle},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a snapshot of the console.
func (c *Console) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Console) stateLocked() State {
	return State{
		Text:      c.text,
		Editable:  c.editable,
		Expanded:  c.expanded,
		CanRun:    c.editable && c.current.Status != StatusRunning,
		Execution: c.current,
		Timing:    c.current.Timing(),
	}
}

// SetEditable flips the edit toggle. Run is only enabled while editable.
func (c *Console) SetEditable(editable bool) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editable = editable
	return c.stateLocked()
}

// SetText replaces the query text. It fails with ErrReadOnly unless editing
// is enabled.
func (c *Console) SetText(text string) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.editable {
		return c.stateLocked(), ErrReadOnly
	}
	c.text = text
	return c.stateLocked(), nil
}

// TogglePanel expands or collapses the panel and returns the new state.
func (c *Console) TogglePanel() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expanded = !c.expanded
	return c.stateLocked()
}

// Run submits the current text and returns immediately with the running
// execution. The query runs in the background; use Wait to block until it
// settles. A run cannot be cancelled once started: ctx only contributes its
// values, not its cancellation.
func (c *Console) Run(ctx context.Context) (Execution, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.editable {
		return c.current, ErrReadOnly
	}
	if c.current.Status == StatusRunning {
		return c.current, ErrBusy
	}

	exec := Execution{
		ID:        uuid.NewString(),
		Query:     c.text,
		Status:    StatusRunning,
		StartedAt: c.clock.Now(),
	}
	c.current = exec
	settled := make(chan struct{})
	c.settled = settled

	runCtx := context.WithoutCancel(ctx)
	go c.execute(runCtx, exec, settled)

	return exec, nil
}

func (c *Console) execute(ctx context.Context, exec Execution, settled chan struct{}) {
	defer close(settled)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	result, err := c.executor.Execute(ctx, exec.Query)
	elapsed := c.clock.Since(exec.StartedAt)

	exec.ElapsedMs = elapsed.Milliseconds()
	if err != nil {
		exec.Status = StatusError
		exec.Error = err.Error()
		c.metrics.QueryExecutions.WithLabelValues("error").Inc()
		c.logger.Warn("query failed", "query_id", exec.ID, "elapsed_ms", exec.ElapsedMs, "error", err)
	} else {
		exec.Status = StatusDone
		exec.Result = result
		c.metrics.QueryExecutions.WithLabelValues("done").Inc()
		c.logger.Info("query finished", "query_id", exec.ID, "elapsed_ms", exec.ElapsedMs, "bytes", len(result))
	}
	c.metrics.QueryDuration.Observe(elapsed.Seconds())

	c.mu.Lock()
	c.current = exec
	c.mu.Unlock()
}

// Wait blocks until the current execution settles or ctx is done, and returns
// the latest execution. It returns immediately when nothing is running.
func (c *Console) Wait(ctx context.Context) (Execution, error) {
	c.mu.Lock()
	settled := c.settled
	c.mu.Unlock()

	if settled != nil {
		select {
		case <-settled:
		case <-ctx.Done():
			return c.State().Execution, ctx.Err()
		}
	}
	return c.State().Execution, nil
}
