// Package graphql talks to the storm report query service over its GraphQL
// endpoint. It loads report batches for the dashboard and forwards raw query
// text for the query console.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/storm-data-dashboard/internal/domain"
	"github.com/sony/gobreaker"
)

// ErrQueryFailed wraps every failure reported by the query service: a non-200
// status, a body that is not JSON, or a GraphQL errors array.
var ErrQueryFailed = errors.New("query failed")

// errAbandoned marks a request the caller gave up on. It says nothing about
// the service, so the breaker does not count it.
var errAbandoned = errors.New("request abandoned by caller")

// maxPages bounds a single batch load. A day that needs more is an error
// rather than a silently truncated batch.
const maxPages = 100

// Client is a GraphQL client for the query service.
type Client struct {
	endpoint   string
	httpClient *http.Client
	pageSize   int
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewClient creates a client for the service at baseURL; requests go to
// baseURL + "/query".
func NewClient(baseURL string, timeout time.Duration, pageSize int, logger *slog.Logger) *Client {
	return &Client{
		endpoint:   strings.TrimRight(baseURL, "/") + "/query",
		httpClient: &http.Client{Timeout: timeout},
		pageSize:   pageSize,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "storm-api",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, errAbandoned)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			},
		}),
		logger: logger,
	}
}

// Execute sends query verbatim and returns the response body unchanged. It
// does not go through the circuit breaker and is never retried.
func (c *Client) Execute(ctx context.Context, query string) (string, error) {
	body, err := c.post(ctx, query)
	if err != nil {
		return "", err
	}

	var envelope struct {
		Errors []gqlError `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", fmt.Errorf("%w: malformed response: %w", ErrQueryFailed, err)
	}
	if len(envelope.Errors) > 0 {
		return "", fmt.Errorf("%w: %s", ErrQueryFailed, joinErrors(envelope.Errors))
	}
	return string(body), nil
}

// LoadBatch fetches every report whose begin time falls on the UTC day of
// date, paging through the service with the configured page size.
func (c *Client) LoadBatch(ctx context.Context, date time.Time) (domain.ReportBatch, error) {
	day := domain.DayOf(date)
	from, to := day, day.AddDate(0, 0, 1)

	var (
		reports     []domain.Report
		lastUpdated time.Time
		skipped     int
		hasMore     = true
	)
	for page := 0; page < maxPages && hasMore; page++ {
		offset := page * c.pageSize
		result, err := c.fetchPage(ctx, batchQuery(from, to, c.pageSize, offset))
		if err != nil {
			return domain.ReportBatch{}, fmt.Errorf("load batch %s: %w", day.Format(domain.DateLayout), err)
		}

		for _, r := range result.Reports {
			report, ok := r.toDomain()
			if !ok {
				skipped++
				continue
			}
			reports = append(reports, report)
		}
		if t, ok := result.Meta.lastUpdated(); ok {
			lastUpdated = t
		}

		hasMore = result.HasMore && len(result.Reports) > 0
	}
	if hasMore {
		return domain.ReportBatch{}, fmt.Errorf("load batch %s: %w: more than %d pages of %d reports",
			day.Format(domain.DateLayout), ErrQueryFailed, maxPages, c.pageSize)
	}

	batch, dropped := domain.NewReportBatch(day, reports, lastUpdated)
	if skipped > 0 || dropped > 0 {
		c.logger.Warn("reports excluded from batch",
			"date", day.Format(domain.DateLayout),
			"unparseable", skipped,
			"outside_day", dropped,
		)
	}
	return batch, nil
}

// LatestDate returns the UTC day of the most recent report the service
// holds, or the zero time when it holds none.
func (c *Client) LatestDate(ctx context.Context) (time.Time, error) {
	result, err := c.fetchPage(ctx, latestQuery)
	if err != nil {
		return time.Time{}, fmt.Errorf("latest report date: %w", err)
	}
	if len(result.Reports) == 0 {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, result.Reports[0].BeginTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: latest report date: %w", ErrQueryFailed, err)
	}
	return domain.DayOf(t), nil
}

func (c *Client) fetchPage(ctx context.Context, query string) (stormReports, error) {
	if err := ctx.Err(); err != nil {
		return stormReports{}, err
	}
	out, err := c.breaker.Execute(func() (interface{}, error) {
		body, err := c.post(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", errAbandoned, err)
			}
			return nil, err
		}

		var resp response
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("%w: malformed response: %w", ErrQueryFailed, err)
		}
		if len(resp.Errors) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrQueryFailed, joinErrors(resp.Errors))
		}
		return resp.Data.StormReports, nil
	})
	if err != nil {
		return stormReports{}, err
	}
	return out.(stormReports), nil
}

func (c *Client) post(ctx context.Context, query string) ([]byte, error) {
	payload, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrQueryFailed, resp.StatusCode, bytes.TrimSpace(body))
	}
	return body, nil
}

func joinErrors(errs []gqlError) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}
