// Package resilience provides a circuit breaker used to shed load from
// the model endpoint when it fails persistently.
package resilience

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State of the circuit breaker.
type State int

const (
	// StateClosed - calls flow normally
	StateClosed State = iota
	// StateOpen - calls are rejected immediately
	StateOpen
	// StateHalfOpen - a limited number of probe calls are allowed
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned by Allow while the circuit is rejecting calls.
var ErrOpen = errors.New("circuit breaker open")

// Config for a Breaker.
type Config struct {
	// Name identifies the guarded dependency in logs.
	Name string

	// FailureThreshold is the number of consecutive failures that opens
	// the circuit.
	FailureThreshold int

	// OpenTimeout is how long the circuit stays open before allowing
	// probe calls.
	OpenTimeout time.Duration

	// HalfOpenMax is the number of probe calls allowed in half-open state.
	HalfOpenMax int
}

// DefaultConfig returns conservative defaults for an external HTTP API.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		HalfOpenMax:      1,
	}
}

// Breaker is a consecutive-failure circuit breaker. Callers ask Allow
// before each attempt and report the outcome afterwards.
type Breaker struct {
	cfg    Config
	logger *zap.Logger

	mu         sync.Mutex
	state      State
	failures   int
	openedAt   time.Time
	probesUsed int
}

// New creates a Breaker in the closed state.
func New(cfg Config, logger *zap.Logger) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 1
	}
	return &Breaker{cfg: cfg, logger: logger, state: StateClosed}
}

// Allow reports whether a call may proceed. It returns ErrOpen while the
// circuit is rejecting calls.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Since(b.openedAt) < b.cfg.OpenTimeout {
			return ErrOpen
		}
		b.transition(StateHalfOpen)
		b.probesUsed = 0
		fallthrough
	case StateHalfOpen:
		if b.probesUsed >= b.cfg.HalfOpenMax {
			return ErrOpen
		}
		b.probesUsed++
		return nil
	}
	return nil
}

// ReportSuccess records a successful call.
func (b *Breaker) ReportSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state != StateClosed {
		b.transition(StateClosed)
	}
}

// ReportFailure records a failed call. In half-open state a single
// failure reopens the circuit.
func (b *Breaker) ReportFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.open()
		return
	}

	b.failures++
	if b.failures >= b.cfg.FailureThreshold {
		b.open()
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) open() {
	b.openedAt = time.Now()
	b.failures = 0
	b.transition(StateOpen)
}

func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	if b.logger != nil && from != to {
		b.logger.Warn("Circuit breaker state change",
			zap.String("name", b.cfg.Name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}
}
