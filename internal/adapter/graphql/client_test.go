package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/storm-data-dashboard/internal/domain"
	"github.com/couchcryptid/storm-data-dashboard/internal/domain/domaintest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const headerContentType = "Content-Type"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readQuery(t *testing.T, r *http.Request) string {
	t.Helper()
	assert.Equal(t, http.MethodPost, r.Method)
	assert.Equal(t, "/query", r.URL.Path)
	var body struct {
		Query string `json:"query"`
	}
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body.Query
}

var (
	limitRe  = regexp.MustCompile(`limit: (\d+)`)
	offsetRe = regexp.MustCompile(`offset: (\d+)`)
)

func intArg(re *regexp.Regexp, q string) int {
	m := re.FindStringSubmatch(q)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func wireReport(r domain.Report) map[string]any {
	return map[string]any{
		"id":           r.ID,
		"eventType":    string(r.EventType),
		"measurement":  map[string]any{"magnitude": r.Magnitude, "unit": r.Unit},
		"beginTime":    r.Timestamp.Format(time.RFC3339),
		"location":     map[string]any{"raw": r.Location, "name": r.Location, "state": r.State, "county": r.County},
		"geo":          map[string]any{"lat": r.Lat, "lon": r.Lon},
		"sourceOffice": r.SourceOffice,
	}
}

// pagedServer serves reports the way the query service pages them.
func pagedServer(t *testing.T, reports []domain.Report, pages *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := readQuery(t, r)
		pages.Add(1)
		limit, offset := intArg(limitRe, q), intArg(offsetRe, q)

		end := min(offset+limit, len(reports))
		page := make([]map[string]any, 0, limit)
		for _, rep := range reports[min(offset, len(reports)):end] {
			page = append(page, wireReport(rep))
		}

		w.Header().Set(headerContentType, "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"stormReports": map[string]any{
					"totalCount": len(reports),
					"hasMore":    end < len(reports),
					"reports":    page,
					"meta":       map[string]any{"lastUpdated": "2024-04-27T05:30:00Z", "dataLagMinutes": 30},
				},
			},
		})
	}))
}

func TestClient_LoadBatch_Pages(t *testing.T) {
	var pages atomic.Int32
	srv := pagedServer(t, domaintest.Reports(), &pages)
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, 100, discardLogger())
	batch, err := c.LoadBatch(context.Background(), domaintest.Date.Add(13*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, int32(3), pages.Load())
	assert.Equal(t, domaintest.Total, batch.Count())
	assert.Equal(t, domaintest.Date, batch.Date)
	assert.Equal(t, domaintest.LastUpdated, batch.LastUpdated)

	want := domaintest.Reports()
	assert.Equal(t, want[0].ID, batch.Reports[0].ID)
	assert.Equal(t, want[0].Severity, batch.Reports[0].Severity)
	assert.Equal(t, want[0].County, batch.Reports[0].County)
}

func TestClient_LoadBatch_QueryShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := readQuery(t, r)
		assert.Contains(t, q, `timeRange: { from: "2024-04-26T00:00:00Z", to: "2024-04-27T00:00:00Z" }`)
		assert.Contains(t, q, "limit: 50")
		assert.Contains(t, q, "offset: 0")
		_, _ = w.Write([]byte(`{"data":{"stormReports":{"totalCount":0,"hasMore":false,"reports":[]}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", 5*time.Second, 50, discardLogger())
	batch, err := c.LoadBatch(context.Background(), domaintest.Date)

	require.NoError(t, err)
	assert.Zero(t, batch.Count())
	assert.True(t, batch.LastUpdated.IsZero())
}

func TestClient_LoadBatch_SkipsBadReports(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = readQuery(t, r)
		_, _ = w.Write([]byte(`{"data":{"stormReports":{"totalCount":4,"hasMore":false,"reports":[
			{"id":"a","eventType":"hail","measurement":{"magnitude":1.75},"beginTime":"2024-04-26T18:00:00Z","location":{"state":"NE","county":"Douglas"},"geo":{"lat":41.2,"lon":-96.0}},
			{"id":"b","eventType":"snow","beginTime":"2024-04-26T18:00:00Z"},
			{"id":"c","eventType":"wind","beginTime":"yesterday"},
			{"id":"d","eventType":"TORNADO","measurement":{"magnitude":2},"beginTime":"2024-04-25T23:59:00Z"}
		]}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, 500, discardLogger())
	batch, err := c.LoadBatch(context.Background(), domaintest.Date)

	require.NoError(t, err)
	require.Equal(t, 1, batch.Count())
	r := batch.Reports[0]
	assert.Equal(t, "a", r.ID)
	assert.Equal(t, "in", r.Unit)
	assert.Equal(t, domain.SeveritySevere, r.Severity)
}

func TestClient_LoadBatch_GraphQLError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = readQuery(t, r)
		_, _ = w.Write([]byte(`{"errors":[{"message":"database unavailable"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, 500, discardLogger())
	_, err := c.LoadBatch(context.Background(), domaintest.Date)

	require.ErrorIs(t, err, ErrQueryFailed)
	assert.Contains(t, err.Error(), "database unavailable")
	assert.Contains(t, err.Error(), "2024-04-26")
}

func TestClient_LoadBatch_BreakerOpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, 500, discardLogger())
	for range 8 {
		_, err := c.LoadBatch(context.Background(), domaintest.Date)
		require.Error(t, err)
	}

	// gobreaker trips after more than five consecutive failures.
	assert.Equal(t, int32(6), calls.Load())
}

func TestClient_LoadBatch_CallerTimeoutsDoNotTripBreaker(t *testing.T) {
	var slow atomic.Bool
	slow.Store(true)
	var pages atomic.Int32
	healthy := pagedServer(t, domaintest.Reports(), &pages)
	defer healthy.Close()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if slow.Load() {
			// Drain the body so the server can notice the client hanging up.
			_, _ = io.Copy(io.Discard, r.Body)
			<-r.Context().Done()
			return
		}
		healthy.Config.Handler.ServeHTTP(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, 500, discardLogger())
	for range 8 {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		_, err := c.LoadBatch(ctx, domaintest.Date)
		cancel()
		require.ErrorIs(t, err, context.DeadlineExceeded)
	}

	slow.Store(false)
	batch, err := c.LoadBatch(context.Background(), domaintest.Date)
	require.NoError(t, err)
	assert.Equal(t, domaintest.Total, batch.Count())
}

func TestClient_LoadBatch_CancelledBeforeStart(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewClient(srv.URL, 5*time.Second, 500, discardLogger())
	_, err := c.LoadBatch(ctx, domaintest.Date)

	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}

func TestClient_LoadBatch_TooManyPages(t *testing.T) {
	var pages atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = readQuery(t, r)
		pages.Add(1)
		_, _ = w.Write([]byte(`{"data":{"stormReports":{"totalCount":100000,"hasMore":true,"reports":[
			{"id":"a","eventType":"hail","measurement":{"magnitude":1.0},"beginTime":"2024-04-26T18:00:00Z","location":{"state":"NE","county":"Douglas"},"geo":{"lat":41.2,"lon":-96.0}}
		]}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, 1, discardLogger())
	_, err := c.LoadBatch(context.Background(), domaintest.Date)

	require.ErrorIs(t, err, ErrQueryFailed)
	assert.Contains(t, err.Error(), "more than 100 pages")
	assert.Equal(t, int32(maxPages), pages.Load())
}

func TestClient_LatestDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := readQuery(t, r)
		assert.Contains(t, q, "sortOrder: DESC")
		assert.Contains(t, q, "limit: 1")
		_, _ = w.Write([]byte(`{"data":{"stormReports":{"reports":[{"beginTime":"2024-04-26T23:10:00Z"}]}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, 500, discardLogger())
	got, err := c.LatestDate(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domaintest.Date, got)
}

func TestClient_LatestDate_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = readQuery(t, r)
		_, _ = w.Write([]byte(`{"data":{"stormReports":{"reports":[]}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, 500, discardLogger())
	got, err := c.LatestDate(context.Background())

	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestClient_Execute_ReturnsBodyVerbatim(t *testing.T) {
	const body = "{\"data\":{\"stormReports\":{\"totalCount\":271}}}\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := readQuery(t, r)
		assert.Equal(t, "{ stormReports { totalCount } }", q)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, 500, discardLogger())
	got, err := c.Execute(context.Background(), "{ stormReports { totalCount } }")

	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestClient_Execute_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		errText string
	}{
		{"server error", http.StatusInternalServerError, "boom", "status 500: boom"},
		{"not json", http.StatusOK, "<html>", "malformed response"},
		{"graphql errors", http.StatusOK, `{"errors":[{"message":"Cannot query field \"bogus\""},{"message":"second"}]}`, `Cannot query field "bogus"; second`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, 5*time.Second, 500, discardLogger())
			_, err := c.Execute(context.Background(), "{ bogus }")

			require.ErrorIs(t, err, ErrQueryFailed)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestClient_Execute_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 50*time.Millisecond, 500, discardLogger())
	_, err := c.Execute(context.Background(), "{}")

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrQueryFailed))
	assert.True(t, strings.Contains(err.Error(), "query request"))
}
