package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendulum-chain/vortex-sub005/internal/monitoring"
	"github.com/pendulum-chain/vortex-sub005/internal/types/environments"
	"github.com/pendulum-chain/vortex-sub005/internal/utils/logger"
)

func scrape(t *testing.T, registry *prometheus.Registry) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/metrics", NewMetricsHandler(registry, logger.New(environments.Test)).Handler())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return w
}

func TestMetricsHandlerServesEngineMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	rampMetrics := monitoring.NewRampMetrics()
	rampMetrics.MustRegister(registry)

	rampMetrics.ObservePhase("evm-to-stellar", "nablaSwap", "advanced", 2.5)
	rampMetrics.RecordFailure("evm-to-brl", "brlaPayout", "unrecoverable")
	rampMetrics.RecordCompletion("evm-to-stellar")
	rampMetrics.SessionStarted()

	w := scrape(t, registry)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")

	body := w.Body.String()
	assert.Contains(t, body, "# TYPE ramp_phase_duration_seconds histogram")
	assert.Contains(t, body, `ramp_phase_duration_seconds_count{flow_type="evm-to-stellar",phase="nablaSwap",result="advanced"} 1`)
	assert.Contains(t, body, `ramp_phase_duration_seconds_bucket{flow_type="evm-to-stellar",phase="nablaSwap",result="advanced",le="5"} 1`)
	assert.Contains(t, body, `ramp_failures_total{flow_type="evm-to-brl",kind="unrecoverable",phase="brlaPayout"} 1`)
	assert.Contains(t, body, `ramp_completions_total{flow_type="evm-to-stellar"} 1`)
	assert.Contains(t, body, "ramp_active_sessions 1")
}

func TestMetricsHandlerOmitsUntouchedVectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	monitoring.NewRampMetrics().MustRegister(registry)

	w := scrape(t, registry)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "ramp_active_sessions 0")
	assert.NotContains(t, body, "ramp_failures_total{")
	assert.NotContains(t, body, "ramp_phase_duration_seconds_count")
}

type failingCollector struct {
	desc *prometheus.Desc
}

func (c failingCollector) Describe(ch chan<- *prometheus.Desc) { ch <- c.desc }

func (c failingCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.NewInvalidMetric(c.desc, errors.New("gateway unreachable"))
}

func TestMetricsHandlerKeepsServingOnCollectorError(t *testing.T) {
	registry := prometheus.NewRegistry()
	rampMetrics := monitoring.NewRampMetrics()
	rampMetrics.MustRegister(registry)
	registry.MustRegister(failingCollector{desc: prometheus.NewDesc("pendulum_block_height", "Latest block", nil, nil)})
	rampMetrics.RecordRestart("brl-to-evm", "squidRouterOnramp")

	w := scrape(t, registry)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `ramp_restarts_total{flow_type="brl-to-evm",phase="squidRouterOnramp"} 1`)
}
