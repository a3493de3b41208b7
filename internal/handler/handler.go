package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/dwarvesf/escrow-history/internal/evmrpc"
	"github.com/dwarvesf/escrow-history/internal/handler/escrow"
	"github.com/dwarvesf/escrow-history/internal/handler/health"
	"github.com/dwarvesf/escrow-history/internal/handler/metrics"
	"github.com/dwarvesf/escrow-history/internal/history"
	"github.com/dwarvesf/escrow-history/internal/monitoring"
	"github.com/dwarvesf/escrow-history/internal/utils/config"
	"github.com/dwarvesf/escrow-history/internal/utils/logger"
)

type Handler struct {
	EscrowHandler  escrow.IHandler
	HealthHandler  health.IHealthHandler
	MetricsHandler *metrics.MetricsHandler
}

func New(appConfig *config.AppConfig, logger *logger.Logger,
	historySvc history.IHistory,
	sessions history.ISessionManager,
	registry *evmrpc.Registry,
	db *gorm.DB,
	metricsRegistry prometheus.Gatherer,
	jobStatusManager *monitoring.JobStatusManager) *Handler {
	return &Handler{
		EscrowHandler:  escrow.New(historySvc, sessions, registry, logger),
		HealthHandler:  health.New(appConfig, logger, db, registry, jobStatusManager),
		MetricsHandler: metrics.NewMetricsHandler(metricsRegistry),
	}
}
