package server

import (
	"context"
	"errors"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"

	"github.com/dwarvesf/escrow-history/internal/escrow"
	"github.com/dwarvesf/escrow-history/internal/evmrpc"
	"github.com/dwarvesf/escrow-history/internal/handler"
	"github.com/dwarvesf/escrow-history/internal/history"
	"github.com/dwarvesf/escrow-history/internal/monitoring"
	"github.com/dwarvesf/escrow-history/internal/store"
	pgstore "github.com/dwarvesf/escrow-history/internal/store/postgres"
	"github.com/dwarvesf/escrow-history/internal/telemetry"
	"github.com/dwarvesf/escrow-history/internal/transport/http"
	"github.com/dwarvesf/escrow-history/internal/types/chains"
	"github.com/dwarvesf/escrow-history/internal/utils/config"
	"github.com/dwarvesf/escrow-history/internal/utils/logger"
	"github.com/dwarvesf/escrow-history/internal/utils/vault"
)

func Init() {
	appConfig := config.New()
	logger := logger.New(appConfig.Environment)

	if appConfig.Vault.Addr != "" {
		vaultClient, err := vault.New(appConfig.Vault.Addr, appConfig.Vault.KVSecretPath, appConfig.Vault.Role)
		if err != nil {
			logger.Fatal("[Init][vault.New]", map[string]string{
				"error": err.Error(),
			})
		}
		appConfig.ApplySecrets(vaultClient.GetKV)
	}

	db := pgstore.New(appConfig, logger)
	s := store.New()

	metricsRegistry := prometheus.NewRegistry()
	metricsRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rpcMetrics := monitoring.NewRPCMetrics()
	rpcMetrics.MustRegister(metricsRegistry)
	httpMetrics := monitoring.NewHTTPMetrics()
	httpMetrics.MustRegister(metricsRegistry)
	scanMetrics := monitoring.NewScanMetrics()
	scanMetrics.MustRegister(metricsRegistry)
	jobMetrics := monitoring.NewBackgroundJobMetrics()
	jobMetrics.MustRegister(metricsRegistry)
	businessMetrics := monitoring.NewBusinessMetricsRecorder()
	businessMetrics.MustRegister(metricsRegistry)

	registry, err := evmrpc.Dial(appConfig, logger)
	if err != nil {
		logger.Fatal("[Init][evmrpc.Dial]", map[string]string{
			"error": err.Error(),
		})
	}
	wrapLedgers(registry, appConfig, logger, rpcMetrics, businessMetrics)

	scanner := escrow.NewScanner(registry, escrow.Options{
		MaxBlockRange:    appConfig.Scanner.MaxBlockRange,
		ChunkTimeout:     appConfig.Scanner.ChunkTimeout,
		EmptyChunkPolicy: emptyChunkPolicy(appConfig.Scanner),
		SkipIndexer:      appConfig.Scanner.PreferRawRPC,
	}, logger, scanMetrics)

	historySvc := history.New(db, s, scanner, history.Options{
		DefaultDays: appConfig.Scanner.DefaultDays,
		MaxDays:     appConfig.Scanner.MaxDays,
	}, logger, businessMetrics)
	sessions := history.NewSessionManager(scanner, escrow.WindowPolicy{
		StepDays: appConfig.Scanner.StepDays,
		MaxDays:  appConfig.Scanner.MaxDays,
	}, appConfig.Scanner.SessionTTL, logger, businessMetrics)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobStatusManager := monitoring.NewJobStatusManager(logger, jobMetrics)
	go jobStatusManager.Run(ctx)

	instrumentedTelemetry := monitoring.NewInstrumentedTelemetry(
		telemetry.New(db, s, appConfig, logger, historySvc),
		jobStatusManager,
		logger,
		appConfig,
	)

	c := cron.New()
	indexPeriod := appConfig.IndexPeriod
	if _, err := c.AddFunc("@every "+indexPeriod, func() {
		instrumentedTelemetry.IndexWatchedEscrows(ctx)
	}); err != nil {
		logger.Fatal("[Init][cron.AddFunc]", map[string]string{
			"index_period": indexPeriod,
			"error":        err.Error(),
		})
	}
	c.AddFunc("@daily", func() {
		instrumentedTelemetry.PruneSnapshots(ctx)
	})
	c.Start()
	defer c.Stop()

	h := handler.New(appConfig, logger, historySvc, sessions, registry, db, metricsRegistry, jobStatusManager)
	srv := &nethttp.Server{
		Addr:              ":" + appConfig.ApiServer.Port,
		Handler:           http.NewHttpServer(appConfig, logger, h, httpMetrics),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("[Init] http server listening", map[string]string{
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			logger.Fatal("[Init][ListenAndServe]", map[string]string{
				"error": err.Error(),
			})
		}
	}()

	<-ctx.Done()
	logger.Info("[Init] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("[Init][Shutdown]", map[string]string{
			"error": err.Error(),
		})
	}
	_ = logger.Sync()
}

// wrapLedgers layers the range cache (only when raw RPC is not required) and
// the circuit breaker on top of every dialed ledger, breaker outermost.
func wrapLedgers(registry *evmrpc.Registry, appConfig *config.AppConfig, logger *logger.Logger, rpcMetrics *monitoring.RPCMetrics, businessMetrics *monitoring.BusinessMetricsRecorder) {
	if !appConfig.Scanner.PreferRawRPC {
		registry.Wrap(func(id chains.ID, ledger evmrpc.ILedger) evmrpc.ILedger {
			return evmrpc.NewCachedLedger(ledger, appConfig.Scanner.RangeCacheTTL).OnLookup(func(hit bool) {
				op := "miss"
				if hit {
					op = "hit"
				}
				businessMetrics.RecordCacheOperation("ledger_range_"+id.String(), op)
			})
		})
	}

	breakerConfig := monitoring.CircuitBreakerConfigFrom(appConfig.CircuitBreaker)
	if err := monitoring.ValidateCircuitBreakerConfig(breakerConfig); err != nil {
		logger.Warn("[wrapLedgers] invalid circuit breaker config, using defaults", map[string]string{
			"error": err.Error(),
		})
		breakerConfig = monitoring.DefaultCircuitBreakerConfig
	}
	registry.Wrap(func(id chains.ID, ledger evmrpc.ILedger) evmrpc.ILedger {
		return monitoring.NewCircuitBreakerLedger(id, ledger, breakerConfig, rpcMetrics, logger)
	})
}

func emptyChunkPolicy(cfg config.ScannerConfig) escrow.EmptyChunkPolicy {
	if cfg.WalkFullWindow {
		return escrow.WalkFullWindow
	}
	return escrow.StopOnEmptyChunk
}
