package monitoring

import (
	"context"
	"time"

	"github.com/dwarvesf/escrow-history/internal/telemetry"
	"github.com/dwarvesf/escrow-history/internal/utils/config"
	"github.com/dwarvesf/escrow-history/internal/utils/logger"
	"github.com/dwarvesf/escrow-history/internal/utils/webhook"
)

const (
	JobIndexWatchedEscrows = "watched_escrow_indexing"
	JobPruneSnapshots      = "snapshot_pruning"
)

// InstrumentedTelemetry runs the telemetry jobs under job monitoring. Job
// errors end up in the job status, never in the caller.
type InstrumentedTelemetry struct {
	baseTelemetry telemetry.ITelemetry
	indexJob      *InstrumentedJob
	pruneJob      *InstrumentedJob
}

func NewInstrumentedTelemetry(
	baseTelemetry telemetry.ITelemetry,
	statusManager *JobStatusManager,
	logger *logger.Logger,
	config *config.AppConfig,
) *InstrumentedTelemetry {
	return &InstrumentedTelemetry{
		baseTelemetry: baseTelemetry,
		indexJob: NewInstrumentedJob(
			JobIndexWatchedEscrows,
			baseTelemetry.IndexWatchedEscrows,
			statusManager,
			logger,
			10*time.Minute,
			WithUptimeWebhook(webhook.New(logger), config.UptimeWebhooks.IndexWatchedEscrowsURL),
		),
		pruneJob: NewInstrumentedJob(
			JobPruneSnapshots,
			baseTelemetry.PruneSnapshots,
			statusManager,
			logger,
			time.Minute,
		),
	}
}

func (it *InstrumentedTelemetry) IndexWatchedEscrows(_ context.Context) error {
	it.indexJob.Execute()
	return nil
}

func (it *InstrumentedTelemetry) PruneSnapshots(_ context.Context) error {
	it.pruneJob.Execute()
	return nil
}
