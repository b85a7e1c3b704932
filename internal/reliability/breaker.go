// Package reliability provides the failure-handling primitives used around
// fallible I/O: a three-state circuit breaker, a retry policy with
// exponential backoff, and a token-bucket rate limiter.
package reliability

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen indicates the circuit breaker is open and the guarded
// operation was not invoked. Callers decide their own fallback.
var ErrCircuitOpen = errors.New("circuit breaker open")

// OpenError carries the breaker identity and failure count of a rejected call.
// It wraps ErrCircuitOpen so call sites can match with errors.Is.
type OpenError struct {
	Name     string
	Failures int
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker %q open after %d failures", e.Name, e.Failures)
}

func (e *OpenError) Unwrap() error { return ErrCircuitOpen }

// BreakerState is the observable state of a circuit breaker.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// closeThreshold is the number of consecutive half-open successes required
// before the breaker closes again.
const closeThreshold = 2

// BreakerConfig configures a circuit breaker.
type BreakerConfig struct {
	// Name identifies the breaker in stats and errors.
	Name string
	// FailureThreshold is the number of qualifying failures, while closed,
	// that opens the circuit. Values below 1 become 1.
	FailureThreshold int
	// RecoveryTimeout is how long the circuit stays open before the next
	// call is allowed through as a half-open trial.
	RecoveryTimeout time.Duration
	// IsFailure classifies which errors count toward the failure threshold.
	// Errors it rejects still propagate to the caller but leave the state
	// machine untouched. The default counts every error except
	// context.Canceled.
	IsFailure func(error) bool
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// CircuitBreaker gates a fallible operation through the Closed, Open and
// HalfOpen states. A single instance is typically shared by every caller of
// the guarded resource; all methods are safe for concurrent use.
type CircuitBreaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	isFailure func(error) bool
	now       func() time.Time

	mu             sync.Mutex
	state          BreakerState
	failures       int
	successes      int
	lastFailure    time.Time
	halfOpenFlight bool
}

// NewCircuitBreaker constructs a breaker with sane defaults.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	name := cfg.Name
	if name == "" {
		name = "default"
	}
	threshold := cfg.FailureThreshold
	if threshold < 1 {
		threshold = 1
	}
	cooldown := cfg.RecoveryTimeout
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	isFailure := cfg.IsFailure
	if isFailure == nil {
		isFailure = func(err error) bool { return !errors.Is(err, context.Canceled) }
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &CircuitBreaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		isFailure: isFailure,
		now:       now,
		state:     BreakerClosed,
	}
}

// Do runs fn under the breaker gate. While open and inside the recovery
// timeout it fails fast with an *OpenError and never invokes fn. After the
// timeout the same call transitions to half-open and attempts fn; two
// consecutive half-open successes close the circuit, any half-open failure
// reopens it. Only one half-open trial is in flight at a time; concurrent
// callers are rejected as if the circuit were still open.
func (c *CircuitBreaker) Do(fn func() error) error {
	if c == nil {
		return fn()
	}

	now := c.now()

	c.mu.Lock()
	switch c.state {
	case BreakerOpen:
		if now.Sub(c.lastFailure) < c.cooldown {
			err := &OpenError{Name: c.name, Failures: c.failures}
			c.mu.Unlock()
			return err
		}
		c.state = BreakerHalfOpen
		c.successes = 0
	case BreakerHalfOpen:
		if c.halfOpenFlight {
			err := &OpenError{Name: c.name, Failures: c.failures}
			c.mu.Unlock()
			return err
		}
	}
	if c.state == BreakerHalfOpen {
		c.halfOpenFlight = true
	}
	c.mu.Unlock()

	err := fn()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == BreakerHalfOpen {
		c.halfOpenFlight = false
	}

	if err == nil {
		c.onSuccess()
		return nil
	}
	if !c.isFailure(err) {
		return err
	}
	c.onFailure(c.now())
	return err
}

// onSuccess and onFailure run with c.mu held.

func (c *CircuitBreaker) onSuccess() {
	switch c.state {
	case BreakerHalfOpen:
		c.successes++
		if c.successes >= closeThreshold {
			c.state = BreakerClosed
			c.failures = 0
			c.successes = 0
			c.lastFailure = time.Time{}
		}
	case BreakerClosed:
		c.failures = 0
	}
}

func (c *CircuitBreaker) onFailure(now time.Time) {
	c.failures++
	c.lastFailure = now

	switch c.state {
	case BreakerHalfOpen:
		c.state = BreakerOpen
		c.successes = 0
	case BreakerClosed:
		if c.failures >= c.threshold {
			c.state = BreakerOpen
		}
	}
}

// Reset forces the breaker closed and clears all counters and the last
// failure time, regardless of current state. Operator escape hatch; not part
// of the normal transition graph.
func (c *CircuitBreaker) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = BreakerClosed
	c.failures = 0
	c.successes = 0
	c.lastFailure = time.Time{}
	c.halfOpenFlight = false
}

// State returns the current breaker state without mutating it.
func (c *CircuitBreaker) State() BreakerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// BreakerStats is a read-only snapshot of a breaker for diagnostics.
type BreakerStats struct {
	Name               string       `json:"name"`
	State              BreakerState `json:"state"`
	FailureCount       int          `json:"failure_count"`
	SuccessCount       int          `json:"success_count"`
	FailureThreshold   int          `json:"failure_threshold"`
	RecoveryTimeoutSec float64      `json:"recovery_timeout_sec"`
	LastFailure        *time.Time   `json:"last_failure,omitempty"`
}

// Stats returns the breaker's observable counters. Pure read.
func (c *CircuitBreaker) Stats() BreakerStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := BreakerStats{
		Name:               c.name,
		State:              c.state,
		FailureCount:       c.failures,
		SuccessCount:       c.successes,
		FailureThreshold:   c.threshold,
		RecoveryTimeoutSec: c.cooldown.Seconds(),
	}
	if !c.lastFailure.IsZero() {
		last := c.lastFailure
		stats.LastFailure = &last
	}
	return stats
}
