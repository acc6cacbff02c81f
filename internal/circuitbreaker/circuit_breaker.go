// Package circuitbreaker stops calling an upstream that keeps failing and
// probes it again after a cool-down.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wallet-insights/internal/logging"
	"github.com/wallet-insights/internal/metrics"
)

// State represents the circuit breaker state
type State string

const (
	// StateClosed means the circuit is closed and requests are allowed
	StateClosed State = "closed"
	// StateOpen means the circuit is open and requests are refused
	StateOpen State = "open"
	// StateHalfOpen means a few trial requests are let through
	StateHalfOpen State = "half_open"
)

// gauge values exported per state
var stateValues = map[State]float64{
	StateClosed:   0,
	StateHalfOpen: 1,
	StateOpen:     2,
}

// ErrOpen is returned without calling the upstream while the circuit is open
var ErrOpen = errors.New("circuit breaker is open")

// ErrTooManyRequests is returned when every half-open trial slot is taken
var ErrTooManyRequests = errors.New("too many requests in half-open state")

// Config configures a circuit breaker
type Config struct {
	Name             string
	MinCalls         int           // calls observed before the failure rate is considered
	FailureThreshold float64       // failure rate (0.0-1.0) that opens the circuit
	MaxConsecutive   int           // consecutive failures that open the circuit regardless of rate
	Cooldown         time.Duration // time spent open before going half-open
	HalfOpenCalls    int           // trial calls; that many successes close the circuit
}

// DefaultConfig returns a default circuit breaker configuration
func DefaultConfig(name string) *Config {
	return &Config{
		Name:             name,
		MinCalls:         10,
		FailureThreshold: 0.5,
		MaxConsecutive:   5,
		Cooldown:         30 * time.Second,
		HalfOpenCalls:    3,
	}
}

// CircuitBreaker guards calls to one upstream
type CircuitBreaker struct {
	cfg Config
	now func() time.Time

	mu               sync.Mutex
	state            State
	calls            int
	failures         int
	successes        int
	consecutiveFails int
	inFlight         int
	lastFailureTime  time.Time
	lastStateChange  time.Time
}

// NewCircuitBreaker creates a closed circuit breaker. Zero fields in cfg take
// their default values.
func NewCircuitBreaker(cfg *Config) *CircuitBreaker {
	def := DefaultConfig(cfg.Name)
	c := *cfg
	if c.MinCalls <= 0 {
		c.MinCalls = def.MinCalls
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = def.FailureThreshold
	}
	if c.MaxConsecutive <= 0 {
		c.MaxConsecutive = def.MaxConsecutive
	}
	if c.Cooldown <= 0 {
		c.Cooldown = def.Cooldown
	}
	if c.HalfOpenCalls <= 0 {
		c.HalfOpenCalls = def.HalfOpenCalls
	}

	cb := &CircuitBreaker{cfg: c, now: time.Now}
	cb.setState(StateClosed)
	return cb
}

// WithClock replaces the time source
func (cb *CircuitBreaker) WithClock(now func() time.Time) *CircuitBreaker {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.now = now
	cb.lastStateChange = now()
	return cb
}

// Execute runs fn unless the circuit refuses it, and records the outcome.
// Context cancellation is not counted as an upstream failure.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	err := fn(ctx)
	if err != nil && ctx.Err() != nil {
		cb.release()
		return err
	}

	cb.afterRequest(err)
	return err
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.lastStateChange) < cb.cfg.Cooldown {
			return ErrOpen
		}
		cb.setState(StateHalfOpen)
		cb.logger().Info("Circuit breaker half-open, probing upstream")
		fallthrough

	case StateHalfOpen:
		if cb.inFlight+cb.successes >= cb.cfg.HalfOpenCalls {
			return ErrTooManyRequests
		}
	}

	cb.inFlight++
	return nil
}

func (cb *CircuitBreaker) release() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.inFlight > 0 {
		cb.inFlight--
	}
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.inFlight > 0 {
		cb.inFlight--
	}
	cb.calls++

	if err != nil {
		cb.onFailure()
	} else {
		cb.onSuccess()
	}
}

func (cb *CircuitBreaker) onSuccess() {
	cb.successes++
	cb.consecutiveFails = 0

	if cb.state == StateHalfOpen && cb.successes >= cb.cfg.HalfOpenCalls {
		cb.setState(StateClosed)
		cb.logger().Info("Circuit breaker closed after successful recovery")
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.failures++
	cb.consecutiveFails++
	cb.lastFailureTime = cb.now()

	switch cb.state {
	case StateClosed:
		if !cb.shouldOpen() {
			return
		}
		fields := map[string]interface{}{
			"failures":         cb.failures,
			"calls":            cb.calls,
			"failureRate":      cb.failureRate(),
			"consecutiveFails": cb.consecutiveFails,
		}
		cb.setState(StateOpen)
		cb.logger().WithFields(fields).Warn("Circuit breaker opened due to failures")

	case StateHalfOpen:
		cb.setState(StateOpen)
		cb.logger().Warn("Circuit breaker reopened after failure in half-open state")
	}
}

func (cb *CircuitBreaker) shouldOpen() bool {
	if cb.consecutiveFails >= cb.cfg.MaxConsecutive {
		return true
	}
	return cb.calls >= cb.cfg.MinCalls && cb.failureRate() >= cb.cfg.FailureThreshold
}

func (cb *CircuitBreaker) failureRate() float64 {
	if cb.calls == 0 {
		return 0
	}
	return float64(cb.failures) / float64(cb.calls)
}

// setState switches state and starts a fresh count. Callers hold mu.
func (cb *CircuitBreaker) setState(state State) {
	cb.state = state
	cb.lastStateChange = cb.now()
	cb.calls = 0
	cb.failures = 0
	cb.successes = 0
	cb.consecutiveFails = 0
	metrics.CircuitState.WithLabelValues(cb.cfg.Name).Set(stateValues[state])
}

func (cb *CircuitBreaker) logger() *logging.Logger {
	return logging.WithFields(map[string]interface{}{
		"circuitBreaker": cb.cfg.Name,
		"state":          cb.state,
	})
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats represents circuit breaker statistics
type Stats struct {
	Name             string    `json:"name"`
	State            State     `json:"state"`
	Calls            int       `json:"calls"`
	Failures         int       `json:"failures"`
	Successes        int       `json:"successes"`
	ConsecutiveFails int       `json:"consecutiveFails"`
	FailureRate      float64   `json:"failureRate"`
	LastFailureTime  time.Time `json:"lastFailureTime"`
	LastStateChange  time.Time `json:"lastStateChange"`
}

// GetStats returns counters for the current state
func (cb *CircuitBreaker) GetStats() *Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return &Stats{
		Name:             cb.cfg.Name,
		State:            cb.state,
		Calls:            cb.calls,
		Failures:         cb.failures,
		Successes:        cb.successes,
		ConsecutiveFails: cb.consecutiveFails,
		FailureRate:      cb.failureRate(),
		LastFailureTime:  cb.lastFailureTime,
		LastStateChange:  cb.lastStateChange,
	}
}

// Reset manually closes the circuit
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.setState(StateClosed)
	cb.logger().Info("Circuit breaker manually reset")
}
