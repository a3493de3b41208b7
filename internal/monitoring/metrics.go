package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
)

// RPCMetrics tracks JSON-RPC traffic per chain as seen through the
// circuit breakers.
type RPCMetrics struct {
	latency  *prometheus.HistogramVec
	requests *prometheus.CounterVec
	timeouts *prometheus.CounterVec
	breaker  *prometheus.GaugeVec
}

// rpcBuckets covers fast head lookups up to eth_getLogs calls near the
// chunk timeout.
var rpcBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30}

func NewRPCMetrics() *RPCMetrics {
	return &RPCMetrics{
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "escrow_history_rpc_request_duration_seconds",
			Help:    "Latency of JSON-RPC requests by chain and method",
			Buckets: rpcBuckets,
		}, []string{"chain", "method", "status"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "escrow_history_rpc_requests_total",
			Help: "JSON-RPC requests by chain, method and outcome",
		}, []string{"chain", "method", "status"}),
		timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "escrow_history_rpc_timeouts_total",
			Help: "JSON-RPC requests that hit their deadline",
		}, []string{"chain", "method"}),
		breaker: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "escrow_history_rpc_breaker_state",
			Help: "Breaker state per chain (0=closed, 1=half-open, 2=open)",
		}, []string{"chain"}),
	}
}

func (m *RPCMetrics) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(m.latency, m.requests, m.timeouts, m.breaker)
}

func (m *RPCMetrics) ObserveRequest(chain, method, status string, seconds float64) {
	m.latency.WithLabelValues(chain, method, status).Observe(seconds)
	m.requests.WithLabelValues(chain, method, status).Inc()
}

func (m *RPCMetrics) ObserveTimeout(chain, method string) {
	m.timeouts.WithLabelValues(chain, method).Inc()
}

func (m *RPCMetrics) SetBreakerState(chain string, state gobreaker.State) {
	m.breaker.WithLabelValues(chain).Set(float64(state))
}
