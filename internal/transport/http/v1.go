package http

import (
	"github.com/gin-gonic/gin"

	"github.com/pendulum-chain/vortex-sub005/internal/handler"
)

func loadV1Routes(r *gin.Engine, h *handler.Handler) {
	v1 := r.Group("/api/v1")

	ramps := v1.Group("/ramps")
	{
		ramps.POST("", h.RampHandler.Start)
		ramps.GET("/:sessionId", h.RampHandler.Get)
		ramps.DELETE("/:sessionId", h.RampHandler.Abandon)
		ramps.POST("/:sessionId/recover", h.RampHandler.Recover)
		ramps.POST("/:sessionId/user-transactions", h.RampHandler.SubmitUserTransaction)
	}

	health := v1.Group("/health")
	{
		health.GET("/db", h.HealthHandler.Database)
		health.GET("/external", h.HealthHandler.External)
		health.GET("/jobs", h.HealthHandler.Jobs)
	}

	r.GET("/healthz", h.HealthHandler.Basic)
	r.GET("/metrics", h.MetricsHandler.Handler())
}
