package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwarvesf/escrow-history/internal/evmrpc"
	"github.com/dwarvesf/escrow-history/internal/monitoring"
	"github.com/dwarvesf/escrow-history/internal/types/chains"
	"github.com/dwarvesf/escrow-history/internal/types/environments"
	"github.com/dwarvesf/escrow-history/internal/utils/logger"
)

type fakeLedger struct {
	head  uint64
	err   error
	delay time.Duration
}

func (f *fakeLedger) LatestBlock(ctx context.Context) (uint64, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return f.head, f.err
}

func (f *fakeLedger) FilterTransfers(context.Context, evmrpc.TransferQuery) ([]evmrpc.RawTransfer, error) {
	return nil, nil
}

func newRegistry(t *testing.T, ledgers map[chains.ID]evmrpc.ILedger) *evmrpc.Registry {
	t.Helper()
	r := evmrpc.NewRegistry()
	for id, ledger := range ledgers {
		require.NoError(t, r.Register(id, ledger, ""))
	}
	return r
}

func serve(h gin.HandlerFunc, path string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET(path, h)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestHealthHandler_Basic(t *testing.T) {
	handler := &HealthHandler{}

	w := serve(handler.Basic, "/healthz")

	assert.Equal(t, http.StatusOK, w.Code)
	var response BasicHealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response.Message)
}

func TestHealthHandler_Database_NilDB(t *testing.T) {
	handler := &HealthHandler{logger: logger.New(environments.Test)}

	w := serve(handler.Database, "/health/db")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var response HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, statusUnhealthy, response.Status)
	assert.Contains(t, response.Checks["database"].Error, "database connection not available")
}

func TestHealthHandler_External(t *testing.T) {
	tests := []struct {
		name       string
		ledgers    map[chains.ID]evmrpc.ILedger
		wantCode   int
		wantStatus string
		wantChecks map[string]string
	}{
		{
			name:       "no chains configured",
			ledgers:    nil,
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: statusUnhealthy,
			wantChecks: map[string]string{"evm_rpc": statusUnhealthy},
		},
		{
			name: "all chains reachable",
			ledgers: map[chains.ID]evmrpc.ILedger{
				chains.Polygon: &fakeLedger{head: 1_000_000},
				chains.BSC:     &fakeLedger{head: 2_000_000},
			},
			wantCode:   http.StatusOK,
			wantStatus: statusHealthy,
			wantChecks: map[string]string{"polygon_rpc": statusHealthy, "bsc_rpc": statusHealthy},
		},
		{
			name: "one chain failing",
			ledgers: map[chains.ID]evmrpc.ILedger{
				chains.Polygon:  &fakeLedger{head: 1_000_000},
				chains.Ethereum: &fakeLedger{err: errors.New("connection refused")},
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: statusUnhealthy,
			wantChecks: map[string]string{"polygon_rpc": statusHealthy, "ethereum_rpc": statusUnhealthy},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := New(nil, logger.New(environments.Test), nil, newRegistry(t, tt.ledgers), nil)

			w := serve(handler.External, "/health/external")

			assert.Equal(t, tt.wantCode, w.Code)
			var response HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.wantStatus, response.Status)
			for name, status := range tt.wantChecks {
				require.Contains(t, response.Checks, name)
				assert.Equal(t, status, response.Checks[name].Status)
			}
		})
	}
}

func TestHealthHandler_External_Timeout(t *testing.T) {
	registry := newRegistry(t, map[chains.ID]evmrpc.ILedger{
		chains.Arbitrum: &fakeLedger{delay: time.Second},
	})
	handler := &HealthHandler{
		logger:       logger.New(environments.Test),
		registry:     registry,
		checkTimeout: 20 * time.Millisecond,
	}

	w := serve(handler.External, "/health/external")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var response HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "timeout", response.Checks["arbitrum_rpc"].Error)
}

func TestHealthHandler_External_ReportsBreakerState(t *testing.T) {
	registry := newRegistry(t, map[chains.ID]evmrpc.ILedger{
		chains.Polygon: &fakeLedger{head: 42},
	})
	metrics := monitoring.NewRPCMetrics()
	metrics.MustRegister(prometheus.NewRegistry())
	registry.Wrap(func(id chains.ID, ledger evmrpc.ILedger) evmrpc.ILedger {
		return monitoring.NewCircuitBreakerLedger(id, ledger, monitoring.DefaultCircuitBreakerConfig, metrics, logger.New(environments.Test))
	})
	handler := New(nil, logger.New(environments.Test), nil, registry, nil)

	w := serve(handler.External, "/health/external")

	assert.Equal(t, http.StatusOK, w.Code)
	var response HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	check := response.Checks["polygon_rpc"]
	assert.Equal(t, "closed", check.Metadata["circuit_breaker"])
	assert.Equal(t, float64(42), check.Metadata["head_block"])
}

func newJobManager() *monitoring.JobStatusManager {
	metrics := monitoring.NewBackgroundJobMetrics()
	metrics.MustRegister(prometheus.NewRegistry())
	return monitoring.NewJobStatusManager(logger.New(environments.Test), metrics)
}

func TestHealthHandler_Jobs(t *testing.T) {
	t.Run("no manager", func(t *testing.T) {
		handler := &HealthHandler{logger: logger.New(environments.Test)}
		w := serve(handler.Jobs, "/health/jobs")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("healthy", func(t *testing.T) {
		jsm := newJobManager()
		jsm.RegisterJob(monitoring.JobIndexWatchedEscrows)
		jsm.StartJob(monitoring.JobIndexWatchedEscrows)
		jsm.CompleteJob(monitoring.JobIndexWatchedEscrows, nil, nil)

		handler := &HealthHandler{logger: logger.New(environments.Test), jobStatusManager: jsm}
		w := serve(handler.Jobs, "/health/jobs")

		assert.Equal(t, http.StatusOK, w.Code)
		var response JobsHealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, statusHealthy, response.Status)
		assert.Equal(t, 1, response.Summary.TotalJobs)
	})

	t.Run("non critical failure degrades", func(t *testing.T) {
		jsm := newJobManager()
		jsm.StartJob(monitoring.JobPruneSnapshots)
		jsm.CompleteJob(monitoring.JobPruneSnapshots, errors.New("db down"), nil)

		handler := &HealthHandler{logger: logger.New(environments.Test), jobStatusManager: jsm}
		w := serve(handler.Jobs, "/health/jobs")

		assert.Equal(t, http.StatusPartialContent, w.Code)
	})

	t.Run("repeated critical failure is unhealthy", func(t *testing.T) {
		jsm := newJobManager()
		for i := 0; i < 3; i++ {
			jsm.StartJob(monitoring.JobIndexWatchedEscrows)
			jsm.CompleteJob(monitoring.JobIndexWatchedEscrows, errors.New("ledger query failure"), nil)
		}

		handler := &HealthHandler{logger: logger.New(environments.Test), jobStatusManager: jsm}
		w := serve(handler.Jobs, "/health/jobs")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var response JobsHealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, statusUnhealthy, response.Status)
	})
}
