package monitoring

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dwarvesf/escrow-history/internal/escrow"
	"github.com/dwarvesf/escrow-history/internal/types/chains"
)

// ScanMetrics observes every escrow history scan.
type ScanMetrics struct {
	scans         *prometheus.CounterVec
	scanDuration  *prometheus.HistogramVec
	chunksPerScan *prometheus.HistogramVec
}

func NewScanMetrics() *ScanMetrics {
	return &ScanMetrics{
		scans: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrow_history_scans_total",
				Help: "Escrow history scans by outcome",
			},
			[]string{"chain", "status", "stop_reason"},
		),
		scanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "escrow_history_scan_duration_seconds",
				Help:    "Wall time of a full escrow history scan",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"chain", "status"},
		),
		chunksPerScan: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "escrow_history_scan_chunks",
				Help:    "Block range chunks queried per scan",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
			[]string{"chain"},
		),
	}
}

func (m *ScanMetrics) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(m.scans, m.scanDuration, m.chunksPerScan)
}

// ObserveScan implements escrow.Observer.
func (m *ScanMetrics) ObserveScan(chain chains.ID, err error, stats escrow.ScanStats) {
	status := scanStatus(err)
	m.scans.WithLabelValues(chain.String(), status, string(stats.StopReason)).Inc()
	m.scanDuration.WithLabelValues(chain.String(), status).Observe(stats.Duration.Seconds())
	if err == nil {
		m.chunksPerScan.WithLabelValues(chain.String()).Observe(float64(stats.Chunks))
	}
}

func scanStatus(err error) string {
	var lqe *escrow.LedgerQueryError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &lqe) && lqe.Retryable():
		return "timeout"
	case errors.Is(err, escrow.ErrLedgerQueryFailure):
		return "ledger_error"
	default:
		return "invalid_request"
	}
}
