// api/auth/breaker/breaker.go

package breaker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	bastion_errors "github.com/bastionhq/bastion/api/errors"
	logger "github.com/bastionhq/bastion/api/logging"
	"github.com/bastionhq/bastion/api/model"
)

// State of the circuit.
type State int

const (
	// Closed is normal operation, calls pass through.
	Closed State = iota
	// Open fails calls fast without invoking the operation.
	Open
	// HalfOpen lets trial calls through to probe recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config holds the breaker thresholds and timeouts.
type Config struct {
	// FailureThreshold is the consecutive failure count that opens the
	// circuit from Closed.
	FailureThreshold int
	// SuccessThreshold is the consecutive success count that closes the
	// circuit from HalfOpen.
	SuccessThreshold int
	// CallTimeout bounds each individual wrapped call. A call exceeding
	// it counts as a failure.
	CallTimeout time.Duration
	// OpenTimeout is how long the circuit stays Open before the next
	// call is allowed through as a HalfOpen probe.
	OpenTimeout time.Duration
}

// DefaultConfig mirrors the production defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		CallTimeout:      time.Second,
		OpenTimeout:      30 * time.Second,
	}
}

// OnStateChange is invoked outside the breaker lock after a transition.
type OnStateChange func(from, to State)

// Breaker guards calls to the remote permission service. All state
// lives behind one mutex so transitions are atomic; several goroutines
// racing the Open to HalfOpen boundary may each run a probe, which is
// safe because probes are idempotent permission checks.
type Breaker struct {
	config Config

	mu           sync.Mutex
	state        State
	failureCount int
	successCount int
	openedAt     time.Time

	totalCalls uint64
	failures   uint64
	rejected   uint64

	onStateChange OnStateChange
}

// New creates a breaker in the Closed state.
func New(config Config) *Breaker {
	return &Breaker{config: config, state: Closed}
}

// SetStateChangeHook registers a callback for state transitions. Must be
// called before the breaker is shared.
func (b *Breaker) SetStateChangeHook(hook OnStateChange) {
	b.onStateChange = hook
}

// Call runs op through the breaker. When the circuit is Open and the
// open timeout has not elapsed, op is never invoked and ErrCircuitOpen
// is returned. The call itself is bounded by the configured call
// timeout; exceeding it counts as a failure.
func (b *Breaker) Call(ctx context.Context, op func(ctx context.Context) error) error {
	if !b.allow() {
		return bastion_errors.ErrCircuitOpen
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if b.config.CallTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, b.config.CallTimeout)
		defer cancel()
	}

	err := op(callCtx)
	if err != nil {
		// A caller that gave up says nothing about oracle health. The
		// parent context is checked rather than the wrapped one: the
		// call-timeout deadline still counts as a failure.
		if ctx.Err() == context.Canceled {
			return err
		}
		b.onFailure()
		return err
	}

	b.onSuccess()
	return nil
}

// IsOpen reports whether the circuit is currently Open, without side
// effects on breaker state.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == Open
}

// CurrentState returns the state for diagnostics.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats exports the breaker counters for metrics scraping.
func (b *Breaker) Stats() model.BreakerStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return model.BreakerStats{
		State:        b.state.String(),
		FailureCount: b.failureCount,
		SuccessCount: b.successCount,
		TotalCalls:   b.totalCalls,
		Failures:     b.failures,
		Rejected:     b.rejected,
	}
}

// allow decides whether a call may proceed, transitioning Open to
// HalfOpen when the open timeout has elapsed.
func (b *Breaker) allow() bool {
	b.mu.Lock()

	b.totalCalls++

	switch b.state {
	case Closed, HalfOpen:
		b.mu.Unlock()
		return true
	case Open:
		if time.Since(b.openedAt) > b.config.OpenTimeout {
			hook := b.transition(HalfOpen)
			b.mu.Unlock()
			b.fire(hook)
			return true
		}
		b.rejected++
		b.mu.Unlock()
		logger.Debug("Circuit breaker open, rejecting call")
		return false
	}

	b.mu.Unlock()
	return false
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()

	b.failureCount = 0

	var hook func()
	if b.state == HalfOpen {
		b.successCount++
		if b.successCount >= b.config.SuccessThreshold {
			hook = b.transition(Closed)
		}
	}
	b.mu.Unlock()
	b.fire(hook)
}

func (b *Breaker) onFailure() {
	b.mu.Lock()

	b.failures++

	var hook func()
	switch b.state {
	case Closed:
		b.failureCount++
		if b.failureCount >= b.config.FailureThreshold {
			hook = b.transition(Open)
		}
	case HalfOpen:
		// Any failure while probing reopens the circuit immediately.
		b.successCount = 0
		hook = b.transition(Open)
	case Open:
		// A probe that raced the transition failed after the circuit
		// reopened; nothing more to do.
	}
	b.mu.Unlock()
	b.fire(hook)
}

// transition must be called with the mutex held. It returns the deferred
// hook invocation so callers can run it after unlocking.
func (b *Breaker) transition(to State) func() {
	from := b.state
	if from == to {
		return nil
	}

	b.state = to
	switch to {
	case Open:
		b.openedAt = time.Now()
		b.successCount = 0
	case HalfOpen:
		b.successCount = 0
	case Closed:
		b.failureCount = 0
		b.successCount = 0
	}

	logger.Warn("Circuit breaker state changed",
		zap.String("from", from.String()),
		zap.String("to", to.String()))

	if b.onStateChange == nil {
		return nil
	}
	hook := b.onStateChange
	return func() { hook(from, to) }
}

func (b *Breaker) fire(hook func()) {
	if hook != nil {
		hook()
	}
}
