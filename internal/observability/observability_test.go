package observability

import (
	"testing"

	"github.com/couchcryptid/storm-data-dashboard/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Level(t *testing.T) {
	logger := NewLogger(&config.Config{LogLevel: "warn", LogFormat: "text"})

	require.NotNil(t, logger)
	assert.False(t, logger.Handler().Enabled(t.Context(), -4))
	assert.True(t, logger.Handler().Enabled(t.Context(), 4))
}

func TestMetrics_RegisterOnFreshRegistry(t *testing.T) {
	m := NewMetricsForTesting()
	reg := prometheus.NewRegistry()
	for _, c := range m.collectors() {
		require.NoError(t, reg.Register(c))
	}

	m.BatchLoads.WithLabelValues("ready").Inc()
	m.QueryExecutions.WithLabelValues("done").Add(2)

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				values[f.GetName()] += c.GetValue()
			}
		}
	}
	assert.InDelta(t, 1, values["storm_dashboard_batch_loads_total"], 0)
	assert.InDelta(t, 2, values["storm_dashboard_query_executions_total"], 0)
}
