package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"
	"gorm.io/gorm"

	"github.com/dwarvesf/escrow-history/internal/evmrpc"
	"github.com/dwarvesf/escrow-history/internal/monitoring"
	"github.com/dwarvesf/escrow-history/internal/types/chains"
	"github.com/dwarvesf/escrow-history/internal/utils/config"
	"github.com/dwarvesf/escrow-history/internal/utils/logger"
)

// ChainRegistry is the part of *evmrpc.Registry the health checks read.
type ChainRegistry interface {
	Chains() []chains.ID
	Resolve(id chains.ID) (evmrpc.Binding, error)
}

type breakerState interface {
	State() gobreaker.State
}

// HealthHandler implements IHealthHandler interface
type HealthHandler struct {
	config           *config.AppConfig
	logger           *logger.Logger
	db               *gorm.DB
	registry         ChainRegistry
	jobStatusManager *monitoring.JobStatusManager
	checkTimeout     time.Duration
}

func New(config *config.AppConfig, logger *logger.Logger, db *gorm.DB, registry ChainRegistry, jobStatusManager *monitoring.JobStatusManager) IHealthHandler {
	return &HealthHandler{
		config:           config,
		logger:           logger,
		db:               db,
		registry:         registry,
		jobStatusManager: jobStatusManager,
		checkTimeout:     monitoring.DefaultTimeoutConfig.HealthCheckTimeout,
	}
}

// Basic handles the basic health check endpoint (/healthz)
// @Summary Basic health check
// @Description Returns basic system availability status
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} BasicHealthResponse
// @Router /healthz [get]
func (h *HealthHandler) Basic(c *gin.Context) {
	c.JSON(http.StatusOK, BasicHealthResponse{Message: "ok"})
}

// Database handles the database health check endpoint
// @Summary Database health check
// @Description Validates database connectivity
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /api/v1/health/db [get]
func (h *HealthHandler) Database(c *gin.Context) {
	start := time.Now()
	response := HealthResponse{
		Timestamp: start,
		Checks:    make(map[string]HealthCheck),
	}

	dbCheck := h.checkDatabase(requestContext(c))
	response.Checks["database"] = dbCheck
	response.DurationMs = time.Since(start).Milliseconds()

	response.Status = dbCheck.Status
	c.JSON(httpStatusOf(response.Status), response)
}

// External handles the chain RPC health check endpoint
// @Summary External dependencies health check
// @Description Fetches the head block of every configured chain
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /api/v1/health/external [get]
func (h *HealthHandler) External(c *gin.Context) {
	start := time.Now()
	response := HealthResponse{
		Timestamp: start,
		Checks:    make(map[string]HealthCheck),
	}

	ctx := requestContext(c)
	var ids []chains.ID
	if h.registry != nil {
		ids = h.registry.Chains()
	}
	if len(ids) == 0 {
		response.Checks["evm_rpc"] = HealthCheck{
			Status: statusUnhealthy,
			Error:  "no chain rpc configured",
		}
	}

	checks := make([]HealthCheck, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			checks[i] = h.checkChain(ctx, id)
		}()
	}
	wg.Wait()
	for i, id := range ids {
		response.Checks[id.String()+"_rpc"] = checks[i]
	}
	response.DurationMs = time.Since(start).Milliseconds()

	response.Status = statusHealthy
	for _, check := range response.Checks {
		if check.Status != statusHealthy {
			response.Status = statusUnhealthy
			break
		}
	}
	c.JSON(httpStatusOf(response.Status), response)
}

// probe times fn and turns its error into an unhealthy check. A deadline
// hit inside fn is reported as "timeout".
func probe(ctx context.Context, timeout time.Duration, fn func(ctx context.Context, meta map[string]interface{}) error) HealthCheck {
	start := time.Now()
	meta := map[string]interface{}{}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := fn(probeCtx, meta)

	check := HealthCheck{
		Status:   statusHealthy,
		Latency:  time.Since(start).Milliseconds(),
		Metadata: meta,
	}
	switch {
	case err == nil:
	case errors.Is(probeCtx.Err(), context.DeadlineExceeded):
		check.Status, check.Error = statusUnhealthy, "timeout"
	default:
		check.Status, check.Error = statusUnhealthy, err.Error()
	}
	return check
}

func (h *HealthHandler) checkDatabase(ctx context.Context) HealthCheck {
	return probe(ctx, 5*time.Second, func(ctx context.Context, meta map[string]interface{}) error {
		if h.db == nil {
			return errors.New("database connection not available")
		}
		sqlDB, err := h.db.DB()
		if err != nil {
			return fmt.Errorf("failed to get underlying database: %w", err)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return err
		}

		stats := sqlDB.Stats()
		meta["driver"] = "postgres"
		meta["connection_pool"] = map[string]int{
			"open":     stats.OpenConnections,
			"in_use":   stats.InUse,
			"idle":     stats.Idle,
			"max_open": stats.MaxOpenConnections,
		}
		return nil
	})
}

// checkChain fetches the head block of one chain. An open breaker fails fast
// without touching the node.
func (h *HealthHandler) checkChain(ctx context.Context, id chains.ID) HealthCheck {
	return probe(ctx, h.checkTimeout, func(ctx context.Context, meta map[string]interface{}) error {
		binding, err := h.registry.Resolve(id)
		if err != nil {
			return err
		}
		meta["chain_id"] = binding.Chain.ChainID
		if b, ok := binding.Ledger.(breakerState); ok {
			meta["circuit_breaker"] = b.State().String()
		}

		head, err := binding.Ledger.LatestBlock(ctx)
		if err != nil {
			return err
		}
		meta["head_block"] = head
		return nil
	})
}

func requestContext(c *gin.Context) context.Context {
	if c.Request != nil {
		return c.Request.Context()
	}
	return context.Background()
}
