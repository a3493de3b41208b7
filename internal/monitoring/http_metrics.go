package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics is filled by HTTPMetricsMiddleware, labelled by route pattern.
type HTTPMetrics struct {
	latency  *prometheus.HistogramVec
	requests *prometheus.CounterVec
	size     *prometheus.HistogramVec
	inFlight *prometheus.GaugeVec
}

func NewHTTPMetrics() *HTTPMetrics {
	labels := []string{"method", "path", "status"}
	return &HTTPMetrics{
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "escrow_history_http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
			// history requests can run a full multi-chunk scan
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, labels),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "escrow_history_http_requests_total",
			Help: "Total number of HTTP requests",
		}, labels),
		size: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "escrow_history_http_response_size_bytes",
			Help:    "Size of HTTP responses in bytes",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		}, labels),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "escrow_history_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		}, []string{"method", "path"}),
	}
}

func (m *HTTPMetrics) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(m.latency, m.requests, m.size, m.inFlight)
}

// HTTPMetricsMiddleware records every request under its route pattern.
// Requests that match no route share the "unmatched" path label.
func HTTPMetricsMiddleware(metrics *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		gauge := metrics.inFlight.WithLabelValues(method, route)
		gauge.Inc()
		defer gauge.Dec()

		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		metrics.latency.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
		metrics.requests.WithLabelValues(method, route, status).Inc()
		if n := c.Writer.Size(); n > 0 {
			metrics.size.WithLabelValues(method, route, status).Observe(float64(n))
		}
	}
}
