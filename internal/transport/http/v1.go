package http

import (
	"github.com/gin-gonic/gin"

	"github.com/dwarvesf/escrow-history/internal/handler"
	"github.com/dwarvesf/escrow-history/internal/utils/config"
	"github.com/dwarvesf/escrow-history/internal/utils/logger"
)

func loadV1Routes(r *gin.Engine, h *handler.Handler, appConfig *config.AppConfig, logger *logger.Logger) {
	v1 := r.Group("/api/v1")

	v1.GET("/chains", h.EscrowHandler.ListChains)

	escrows := v1.Group("/escrows")
	{
		escrows.GET("/snapshots", h.EscrowHandler.ListSnapshots)
		escrows.GET("/:chain/:address/transfers", h.EscrowHandler.GetTransfers)
	}

	sessions := v1.Group("/history-sessions")
	{
		sessions.POST("", h.EscrowHandler.CreateSession)
		sessions.GET("/:id", h.EscrowHandler.GetSession)
		sessions.POST("/:id/select", h.EscrowHandler.SelectEscrow)
		sessions.POST("/:id/more", h.EscrowHandler.LoadMore)
		sessions.POST("/:id/refresh", h.EscrowHandler.RefreshSession)
	}

	health := v1.Group("/health")
	{
		health.GET("/db", h.HealthHandler.Database)
		health.GET("/external", h.HealthHandler.External)
		health.GET("/jobs", h.HealthHandler.Jobs)
	}

	r.GET("/healthz", h.HealthHandler.Basic)
	r.GET("/metrics", h.MetricsHandler.Handler())

	logger.Debug("[loadV1Routes] routes loaded", map[string]string{
		"env": string(appConfig.Environment),
	})
}
