package client

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-travel/types"
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
	breakerStopped
)

var breakerStateNames = [...]string{"closed", "open", "half-open", "stopped"}

func (s breakerState) String() string {
	if int(s) < len(breakerStateNames) {
		return breakerStateNames[s]
	}
	return "unknown"
}

// CircuitBreaker guards one upstream. After FailureThreshold consecutive
// failures it rejects calls for RecoveryTimeout, then lets probes through
// until HalfOpenRequests of them succeed. A nil or disabled breaker allows
// everything.
type CircuitBreaker struct {
	config   types.CircuitBreakerConfig
	logger   types.Logger
	upstream string
	now      func() time.Time

	mu        sync.Mutex
	state     breakerState
	failures  int
	successes int
	openedAt  time.Time
}

func NewCircuitBreaker(config *types.CircuitBreakerConfig, logger types.Logger, upstream string) *CircuitBreaker {
	cb := &CircuitBreaker{
		logger:   logger,
		upstream: upstream,
		now:      time.Now,
	}
	if config != nil && config.Enabled {
		cb.config = *config
		if cb.config.FailureThreshold < 1 {
			cb.config.FailureThreshold = 1
		}
		if cb.config.HalfOpenRequests < 1 {
			cb.config.HalfOpenRequests = 1
		}
	}

	return cb
}

func (cb *CircuitBreaker) enabled() bool {
	return cb != nil && cb.config.Enabled
}

// Allow reports whether a call may go out, moving an expired open breaker
// to half-open.
func (cb *CircuitBreaker) Allow() bool {
	if !cb.enabled() {
		return true
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case breakerClosed, breakerHalfOpen:
		return true
	case breakerOpen:
		if cb.now().Sub(cb.openedAt) < cb.config.RecoveryTimeout {
			return false
		}
		cb.moveTo(breakerHalfOpen)
		return true
	default:
		return false
	}
}

func (cb *CircuitBreaker) Success() {
	if !cb.enabled() {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case breakerClosed:
		cb.failures = 0
	case breakerHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.HalfOpenRequests {
			cb.moveTo(breakerClosed)
		}
	}
}

func (cb *CircuitBreaker) Failure() {
	if !cb.enabled() {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case breakerClosed:
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.moveTo(breakerOpen)
		}
	case breakerHalfOpen:
		cb.moveTo(breakerOpen)
	}
}

// State is "disabled" for a breaker that never trips.
func (cb *CircuitBreaker) State() string {
	if !cb.enabled() {
		return "disabled"
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.state.String()
}

func (cb *CircuitBreaker) Stop() {
	if !cb.enabled() {
		return
	}

	cb.mu.Lock()
	cb.state = breakerStopped
	cb.mu.Unlock()
}

// moveTo must be called with mu held.
func (cb *CircuitBreaker) moveTo(next breakerState) {
	prev := cb.state
	cb.state = next
	cb.successes = 0

	switch next {
	case breakerOpen:
		cb.openedAt = cb.now()
		cb.logger.Warn("Circuit breaker opened",
			zap.String("upstream", cb.upstream),
			zap.Int("failures", cb.failures),
			zap.String("from", prev.String()))
	case breakerClosed:
		cb.failures = 0
		cb.logger.Info("Circuit breaker closed", zap.String("upstream", cb.upstream))
	case breakerHalfOpen:
		cb.logger.Debug("Circuit breaker half-open", zap.String("upstream", cb.upstream))
	}
}

// tripsBreaker: transport errors, throttling and server errors count
// against the upstream. Other 4xx are the caller's fault.
func tripsBreaker(statusCode int, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled)
	}

	switch statusCode {
	case fasthttp.StatusRequestTimeout, fasthttp.StatusTooManyRequests:
		return true
	}
	return statusCode >= 500
}

func retryable(statusCode int, err error) bool {
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, types.ErrClientRedirectLimit) {
			return false
		}
		if errors.Is(err, fasthttp.ErrTimeout) || errors.Is(err, fasthttp.ErrConnectionClosed) {
			return true
		}
		var netErr net.Error
		if errors.As(err, &netErr) {
			return netErr.Timeout()
		}
		return true
	}

	switch statusCode {
	case fasthttp.StatusRequestTimeout, fasthttp.StatusTooManyRequests,
		fasthttp.StatusBadGateway, fasthttp.StatusServiceUnavailable, fasthttp.StatusGatewayTimeout:
		return true
	}
	return false
}

func succeeded(statusCode int, err error) bool {
	return err == nil && statusCode >= 200 && statusCode < 300
}
