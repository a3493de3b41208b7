package monitoring

import (
	"time"

	"github.com/dwarvesf/escrow-history/internal/utils/config"
)

// CircuitBreakerConfig defines the configuration for circuit breakers
type CircuitBreakerConfig struct {
	MaxRequests                 uint32        `json:"max_requests"`
	Interval                    time.Duration `json:"interval"`
	Timeout                     time.Duration `json:"timeout"`
	ConsecutiveFailureThreshold int           `json:"consecutive_failure_threshold"`
}

// TimeoutConfig bounds single calls made through a breaker
type TimeoutConfig struct {
	RequestTimeout     time.Duration `json:"request_timeout"`
	HealthCheckTimeout time.Duration `json:"health_check_timeout"`
}

// APIErrorType represents different types of API errors for classification
type APIErrorType string

const (
	ErrorTypeTimeout      APIErrorType = "timeout"
	ErrorTypeCanceled     APIErrorType = "canceled"
	ErrorTypeNetworkError APIErrorType = "network_error"
	ErrorTypeServerError  APIErrorType = "server_error"
	ErrorTypeClientError  APIErrorType = "client_error"
	ErrorTypeUnknown      APIErrorType = "unknown"
)

var DefaultCircuitBreakerConfig = CircuitBreakerConfig{
	MaxRequests:                 3,
	Interval:                    45 * time.Second,
	Timeout:                     120 * time.Second,
	ConsecutiveFailureThreshold: 5,
}

// DefaultTimeoutConfig keeps a single getLogs call under the scanner's
// per-chunk budget.
var DefaultTimeoutConfig = TimeoutConfig{
	RequestTimeout:     15 * time.Second,
	HealthCheckTimeout: 3 * time.Second,
}

func CircuitBreakerConfigFrom(c config.CircuitBreakerConfig) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxRequests:                 c.MaxRequests,
		Interval:                    c.Interval,
		Timeout:                     c.Timeout,
		ConsecutiveFailureThreshold: c.ConsecutiveFailureThreshold,
	}
}
