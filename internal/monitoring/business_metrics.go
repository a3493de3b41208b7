package monitoring

import "github.com/prometheus/client_golang/prometheus"

// BusinessMetricsRecorder counts history requests, session operations,
// snapshot writes and range cache lookups. It satisfies
// history.MetricsRecorder.
type BusinessMetricsRecorder struct {
	historyRequests *prometheus.CounterVec
	historyDuration *prometheus.HistogramVec
	sessionOps      *prometheus.CounterVec
	sessionDuration *prometheus.HistogramVec
	databaseOps     *prometheus.CounterVec
	databaseLatency *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
}

func NewBusinessMetricsRecorder() *BusinessMetricsRecorder {
	return &BusinessMetricsRecorder{
		historyRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "escrow_history_requests_total",
			Help: "History requests by chain and freshness (fresh, stale, error)",
		}, []string{"chain", "status"}),
		historyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "escrow_history_request_duration_seconds",
			Help:    "Time to serve a history request including snapshot fallback",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"chain", "status"}),
		sessionOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "escrow_history_session_operations_total",
			Help: "History session operations by outcome",
		}, []string{"operation", "status"}),
		sessionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "escrow_history_session_operation_duration_seconds",
			Help:    "Duration of history session operations",
			Buckets: []float64{0.05, 0.25, 1, 2.5, 5, 10, 30, 60},
		}, []string{"operation", "status"}),
		databaseOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "escrow_history_db_operations_total",
			Help: "Snapshot store operations by outcome",
		}, []string{"operation", "status"}),
		databaseLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "escrow_history_db_operation_duration_seconds",
			Help:    "Snapshot store latency",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"operation", "status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "escrow_history_cache_lookups_total",
			Help: "Range cache lookups by result (hit, miss)",
		}, []string{"cache", "result"}),
	}
}

func (r *BusinessMetricsRecorder) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(
		r.historyRequests, r.historyDuration,
		r.sessionOps, r.sessionDuration,
		r.databaseOps, r.databaseLatency,
		r.cacheLookups,
	)
}

func (r *BusinessMetricsRecorder) RecordHistoryScan(chain, status string, duration float64) {
	r.historyRequests.WithLabelValues(chain, status).Inc()
	observePositive(r.historyDuration.WithLabelValues(chain, status), duration)
}

func (r *BusinessMetricsRecorder) RecordSessionOperation(operation, status string, duration float64) {
	r.sessionOps.WithLabelValues(operation, status).Inc()
	observePositive(r.sessionDuration.WithLabelValues(operation, status), duration)
}

func (r *BusinessMetricsRecorder) RecordDatabaseOperation(operation, status string, duration float64) {
	r.databaseOps.WithLabelValues(operation, status).Inc()
	observePositive(r.databaseLatency.WithLabelValues(operation, status), duration)
}

// RecordCacheOperation records a hit or miss for the named cache.
func (r *BusinessMetricsRecorder) RecordCacheOperation(cache, result string) {
	r.cacheLookups.WithLabelValues(cache, result).Inc()
}

func observePositive(o prometheus.Observer, v float64) {
	if v > 0 {
		o.Observe(v)
	}
}
