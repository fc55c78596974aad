package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/pendulum-chain/vortex-sub005/internal/controller"
	"github.com/pendulum-chain/vortex-sub005/internal/evmrpc"
	"github.com/pendulum-chain/vortex-sub005/internal/handler/health"
	"github.com/pendulum-chain/vortex-sub005/internal/handler/metrics"
	"github.com/pendulum-chain/vortex-sub005/internal/handler/ramp"
	"github.com/pendulum-chain/vortex-sub005/internal/monitoring"
	"github.com/pendulum-chain/vortex-sub005/internal/signingservice"
	"github.com/pendulum-chain/vortex-sub005/internal/substraterpc"
	"github.com/pendulum-chain/vortex-sub005/internal/utils/config"
	"github.com/pendulum-chain/vortex-sub005/internal/utils/logger"
)

type Handler struct {
	RampHandler    ramp.IHandler
	HealthHandler  health.IHealthHandler
	MetricsHandler *metrics.MetricsHandler
}

// Dependencies are the collaborators the health checks probe besides the database.
type Dependencies struct {
	DB       *gorm.DB
	Pendulum substraterpc.ISubstrateRPC
	Moonbeam evmrpc.IEvmRPC
	Signing  signingservice.ISigningService
	Sessions health.ISessionCounter
}

func New(appConfig *config.AppConfig, logger *logger.Logger,
	ctrl controller.IController,
	deps Dependencies,
	metricsRegistry *prometheus.Registry,
	httpMetrics *monitoring.HTTPMetrics,
	jobStatusManager *monitoring.JobStatusManager) *Handler {
	return &Handler{
		RampHandler:    ramp.New(ctrl, logger, httpMetrics),
		HealthHandler:  health.New(appConfig, logger, deps.DB, deps.Pendulum, deps.Moonbeam, deps.Signing, jobStatusManager, deps.Sessions),
		MetricsHandler: metrics.NewMetricsHandler(metricsRegistry, logger),
	}
}
