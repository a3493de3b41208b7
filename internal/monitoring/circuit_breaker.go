package monitoring

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sony/gobreaker"

	"github.com/dwarvesf/escrow-history/internal/evmrpc"
	"github.com/dwarvesf/escrow-history/internal/types/chains"
	"github.com/dwarvesf/escrow-history/internal/utils/logger"
)

// CircuitBreakerLedger wraps evmrpc.ILedger of one chain with a circuit
// breaker. While open, calls fail fast with gobreaker.ErrOpenState.
type CircuitBreakerLedger struct {
	wrapped        evmrpc.ILedger
	chain          string
	circuitBreaker *gobreaker.CircuitBreaker
	metrics        *RPCMetrics
	logger         *logger.Logger
	timeoutConfig  TimeoutConfig
}

func NewCircuitBreakerLedger(chain chains.ID, wrapped evmrpc.ILedger, config CircuitBreakerConfig, metrics *RPCMetrics, logger *logger.Logger) *CircuitBreakerLedger {
	return NewCircuitBreakerLedgerWithTimeout(chain, wrapped, config, DefaultTimeoutConfig, metrics, logger)
}

func NewCircuitBreakerLedgerWithTimeout(chain chains.ID, wrapped evmrpc.ILedger, config CircuitBreakerConfig, timeoutConfig TimeoutConfig, metrics *RPCMetrics, logger *logger.Logger) *CircuitBreakerLedger {
	name := chain.String()
	cb := &CircuitBreakerLedger{
		wrapped:       wrapped,
		chain:         name,
		metrics:       metrics,
		logger:        logger,
		timeoutConfig: timeoutConfig,
	}

	settings := gobreaker.Settings{
		Name:        "evm_rpc_" + name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(config.ConsecutiveFailureThreshold)
		},
		// the caller giving up says nothing about the endpoint
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("[CircuitBreaker] state change", map[string]string{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			metrics.SetBreakerState(name, to)
		},
	}

	cb.circuitBreaker = gobreaker.NewCircuitBreaker(settings)
	metrics.SetBreakerState(name, gobreaker.StateClosed)
	return cb
}

func (cb *CircuitBreakerLedger) State() gobreaker.State {
	return cb.circuitBreaker.State()
}

func (cb *CircuitBreakerLedger) LatestBlock(ctx context.Context) (uint64, error) {
	result, err := cb.execute(ctx, "latest_block", cb.timeoutConfig.HealthCheckTimeout, func(ctx context.Context) (interface{}, error) {
		return cb.wrapped.LatestBlock(ctx)
	})
	if err != nil {
		return 0, err
	}
	return result.(uint64), nil
}

func (cb *CircuitBreakerLedger) FilterTransfers(ctx context.Context, q evmrpc.TransferQuery) ([]evmrpc.RawTransfer, error) {
	result, err := cb.execute(ctx, "filter_transfers", cb.timeoutConfig.RequestTimeout, func(ctx context.Context) (interface{}, error) {
		return cb.wrapped.FilterTransfers(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	return result.([]evmrpc.RawTransfer), nil
}

// execute runs fn through the breaker under its own timeout and records the
// outcome.
func (cb *CircuitBreakerLedger) execute(ctx context.Context, operation string, timeout time.Duration, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	return cb.circuitBreaker.Execute(func() (interface{}, error) {
		start := time.Now()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		result, err := fn(ctx)
		duration := time.Since(start).Seconds()
		if err != nil {
			if classifyError(err) == ErrorTypeTimeout {
				cb.metrics.ObserveTimeout(cb.chain, operation)
			}
			cb.metrics.ObserveRequest(cb.chain, operation, "error", duration)
			cb.logError(operation, duration, err)
			return nil, err
		}
		cb.metrics.ObserveRequest(cb.chain, operation, "success", duration)
		return result, nil
	})
}

func (cb *CircuitBreakerLedger) logError(operation string, duration float64, err error) {
	cb.logger.Error("[CircuitBreaker] rpc call failed", map[string]string{
		"chain":      cb.chain,
		"operation":  operation,
		"duration":   strconv.FormatFloat(duration, 'f', 3, 64),
		"error":      err.Error(),
		"error_type": string(classifyError(err)),
		"cb_state":   cb.circuitBreaker.State().String(),
	})
}

// classifyError buckets an RPC failure for metrics and logging. Typed
// errors from the rpc client win over message matching.
func classifyError(err error) APIErrorType {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ErrorTypeCanceled
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode >= 500 {
			return ErrorTypeServerError
		}
		return ErrorTypeClientError
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrorTypeTimeout
		}
		return ErrorTypeNetworkError
	}
	// JSON-RPC errors are answered by a healthy node: bad params, range
	// limits, rate limits.
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return ErrorTypeClientError
	}

	errMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errMsg, "timeout"):
		return ErrorTypeTimeout
	case containsAny(errMsg, "network", "connection", "unreachable", "dns", "eof"):
		return ErrorTypeNetworkError
	case containsAny(errMsg, "500", "502", "503", "504", "internal server error", "bad gateway", "service unavailable"):
		return ErrorTypeServerError
	case containsAny(errMsg, "400", "401", "403", "404", "429", "bad request", "unauthorized", "forbidden", "rate limit", "block range"):
		return ErrorTypeClientError
	}
	return ErrorTypeUnknown
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ValidateCircuitBreakerConfig rejects settings that would never trip or
// never let a request through.
func ValidateCircuitBreakerConfig(config CircuitBreakerConfig) error {
	if config.MaxRequests == 0 {
		return fmt.Errorf("max_requests must be greater than 0")
	}
	if config.ConsecutiveFailureThreshold <= 0 {
		return fmt.Errorf("consecutive_failure_threshold must be greater than 0")
	}
	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	if config.Interval < 0 {
		return fmt.Errorf("interval must be non-negative")
	}
	return nil
}
