package breaker

import (
	"context"
	"sync"
	"time"

	"renos/pkg/errors"
	"renos/pkg/metrics"
	"renos/pkg/retry"
)

// State represents the circuit state.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half_open"
	case StateOpen:
		return "open"
	}
	return "unknown"
}

// Config defines circuit breaker behaviour for one named dependency.
type Config struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	CallTimeout      time.Duration
	MaxAttempts      int
	RetryInterval    time.Duration
}

func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
		CallTimeout:      10 * time.Second,
		MaxAttempts:      2,
		RetryInterval:    500 * time.Millisecond,
	}
}

// Breaker protects one downstream dependency. Consecutive failures open the
// circuit; after the recovery timeout a single probe call decides whether it
// closes again. A success while closed pays down the failure count by one
// instead of resetting it, so a flapping dependency still trips.
type Breaker struct {
	name string
	cfg  Config

	mu            sync.Mutex
	state         State
	failureCount  int
	lastFailureAt time.Time
	probeInFlight bool

	now func() time.Time
}

func New(name string, cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = 60 * time.Second
	}
	b := &Breaker{
		name:  name,
		cfg:   cfg,
		state: StateClosed,
		now:   time.Now,
	}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(StateClosed))
	return b
}

func (b *Breaker) Name() string { return b.name }

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) IsOpen() bool {
	return b.State() == StateOpen
}

// FailureCount returns the current consecutive-failure balance.
func (b *Breaker) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failureCount
}

// Execute runs fn under the circuit. The call is rejected with
// errors.ErrCircuitOpen while the circuit is open; otherwise fn gets a
// per-call timeout and a bounded retry, and the combined outcome is
// recorded as a single success or failure event.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	probe, err := b.allow()
	if err != nil {
		return err
	}

	callErr := b.call(ctx, fn)
	b.record(callErr == nil, probe)
	return callErr
}

func (b *Breaker) call(ctx context.Context, fn func(context.Context) error) error {
	attempts := b.cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	policy := retry.Policy{
		MaxAttempts:     attempts,
		InitialInterval: b.cfg.RetryInterval,
		MaxInterval:     b.cfg.RetryInterval * 4,
		Multiplier:      2.0,
	}

	return retry.Retry(ctx, policy, func() error {
		callCtx := ctx
		if b.cfg.CallTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, b.cfg.CallTimeout)
			defer cancel()
		}
		return fn(callCtx)
	})
}

// allow decides whether a call may proceed and whether it runs as the
// half-open probe. No blocking work happens under the lock.
func (b *Breaker) allow() (probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return false, nil
	case StateOpen:
		if b.now().Sub(b.lastFailureAt) < b.cfg.RecoveryTimeout {
			return false, errors.ErrCircuitOpen.WithDetail("dependency", b.name)
		}
		b.setState(StateHalfOpen)
		b.probeInFlight = true
		return true, nil
	case StateHalfOpen:
		if b.probeInFlight {
			return false, errors.ErrCircuitOpen.WithDetail("dependency", b.name)
		}
		b.probeInFlight = true
		return true, nil
	}
	return false, nil
}

func (b *Breaker) record(success, probe bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, b.state.String()).Inc()
	if !success {
		metrics.CircuitBreakerFailures.WithLabelValues(b.name).Inc()
	}

	if probe {
		b.probeInFlight = false
		if success {
			b.failureCount = 0
			b.setState(StateClosed)
		} else {
			b.lastFailureAt = b.now()
			b.setState(StateOpen)
		}
		return
	}

	if success {
		if b.failureCount > 0 {
			b.failureCount--
		}
		return
	}

	b.failureCount++
	b.lastFailureAt = b.now()
	if b.state == StateClosed && b.failureCount >= b.cfg.FailureThreshold {
		b.setState(StateOpen)
	}
}

func (b *Breaker) setState(s State) {
	b.state = s
	metrics.CircuitBreakerState.WithLabelValues(b.name).Set(float64(s))
}
