package jobguard

import (
	"context"
	"errors"
	"sync"
	"time"
)

// BreakerState is the circuit state of a Fallback guard.
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // primary in use
	BreakerOpen                         // primary skipped, fallback in use
	BreakerHalfOpen                     // next call probes the primary
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes when the primary is bypassed.
type BreakerConfig struct {
	FailureThreshold int           // consecutive primary errors that trip the breaker
	ResetTimeout     time.Duration // time open before probing the primary again
}

// DefaultBreakerConfig trips after 3 errors and probes again after 30s.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 3, ResetTimeout: 30 * time.Second}
}

// Fallback uses primary until it keeps failing with backend errors, then
// serves locks from fallback until a probe of primary succeeds. ErrHeld
// from primary is a normal answer, not a failure.
type Fallback struct {
	primary  Guard
	fallback Guard
	cfg      BreakerConfig

	mu        sync.Mutex
	state     BreakerState
	failures  int
	trippedAt time.Time
	now       func() time.Time
}

// NewFallback wraps primary with a circuit breaker over fallback.
func NewFallback(primary, fallback Guard, cfg BreakerConfig) *Fallback {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = DefaultBreakerConfig().ResetTimeout
	}
	return &Fallback{primary: primary, fallback: fallback, cfg: cfg, now: time.Now}
}

// Acquire takes the lock from primary, or from fallback while the breaker
// is open. A tripping call is retried on fallback.
func (f *Fallback) Acquire(ctx context.Context, name string) (func(), error) {
	if !f.allow() {
		return f.fallback.Acquire(ctx, name)
	}
	release, err := f.primary.Acquire(ctx, name)
	if err == nil || errors.Is(err, ErrHeld) {
		f.recordSuccess()
		return release, err
	}
	if f.recordFailure() {
		return f.fallback.Acquire(ctx, name)
	}
	return nil, err
}

// Ping reports primary health. It does not move the breaker.
func (f *Fallback) Ping(ctx context.Context) error {
	return f.primary.Ping(ctx)
}

// State returns the current breaker state.
func (f *Fallback) State() BreakerState {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advanceLocked()
	return f.state
}

func (f *Fallback) allow() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advanceLocked()
	return f.state != BreakerOpen
}

func (f *Fallback) advanceLocked() {
	if f.state == BreakerOpen && f.now().Sub(f.trippedAt) >= f.cfg.ResetTimeout {
		f.state = BreakerHalfOpen
	}
}

func (f *Fallback) recordSuccess() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = BreakerClosed
	f.failures = 0
}

// recordFailure reports whether the breaker is now open.
func (f *Fallback) recordFailure() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures++
	if f.state == BreakerHalfOpen || f.failures >= f.cfg.FailureThreshold {
		f.state = BreakerOpen
		f.trippedAt = f.now()
	}
	return f.state == BreakerOpen
}
