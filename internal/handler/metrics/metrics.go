package metrics

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pendulum-chain/vortex-sub005/internal/utils/logger"
)

// MetricsHandler serves the process registry: engine phase timings and failures, job runs,
// HTTP and external API metrics.
type MetricsHandler struct {
	handler http.Handler
}

// scrapeLogger routes collector errors into the service log instead of failing the scrape.
type scrapeLogger struct {
	logger *logger.Logger
}

func (l scrapeLogger) Println(v ...interface{}) {
	l.logger.Error("[metrics.Scrape] collector error", map[string]string{"error": fmt.Sprint(v...)})
}

func NewMetricsHandler(registry *prometheus.Registry, l *logger.Logger) *MetricsHandler {
	return &MetricsHandler{
		handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{
			ErrorLog:          scrapeLogger{logger: l},
			ErrorHandling:     promhttp.ContinueOnError,
			EnableOpenMetrics: true,
		}),
	}
}

func (h *MetricsHandler) Handler() gin.HandlerFunc {
	return gin.WrapH(h.handler)
}
