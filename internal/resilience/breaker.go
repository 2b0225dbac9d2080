// Package resilience provides retry and circuit breaking for calls to the
// fill-value oracle.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// BreakerState is the state of a circuit breaker.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrCircuitOpen is returned when a call is rejected by an open breaker.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// BreakerConfig controls circuit breaker behavior.
type BreakerConfig struct {
	// FailureThreshold consecutive failures open the circuit. Default: 5.
	FailureThreshold int
	// ResetTimeout is how long the circuit stays open before a probe is
	// let through. Default: 60s.
	ResetTimeout time.Duration
	// Name labels state-change log lines.
	Name string
}

// Breaker is a consecutive-failure circuit breaker shared by all sessions.
type Breaker struct {
	cfg BreakerConfig

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time

	now func() time.Time
}

// NewBreaker creates a closed breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 60 * time.Second
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// State returns the current state. An open breaker past its reset timeout
// reports half-open.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.cfg.ResetTimeout {
		return BreakerHalfOpen
	}
	return b.state
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Execute runs fn unless the circuit is open and records its result.
func Execute[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.admit(); err != nil {
		return zero, err
	}
	val, err := fn(ctx)
	b.record(err)
	return val, err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.cfg.ResetTimeout {
			return ErrCircuitOpen
		}
		b.setState(BreakerHalfOpen)
	case BreakerHalfOpen:
		// Only one probe at a time.
		return ErrCircuitOpen
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failures = 0
		if b.state != BreakerClosed {
			b.setState(BreakerClosed)
		}
		return
	}

	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.cfg.FailureThreshold {
		b.openedAt = b.now()
		b.setState(BreakerOpen)
	}
}

func (b *Breaker) setState(to BreakerState) {
	if b.state == to {
		return
	}
	zap.L().Warn("circuit breaker state change",
		zap.String("breaker", b.cfg.Name),
		zap.Stringer("from", b.state),
		zap.Stringer("to", to),
	)
	b.state = to
}
