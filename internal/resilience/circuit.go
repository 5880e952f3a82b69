package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ErrOpenCircuit is returned when the circuit breaker refuses a request.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State represents the current breaker state.
type State int

const (
	// Closed accepts all requests and tracks failures.
	Closed State = iota
	// Open rejects requests until the cool-off period expires.
	Open
	// HalfOpen lets a single probe through to test recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker is a failure-ratio circuit breaker guarding one dependency.
type Breaker struct {
	mu           sync.Mutex
	state        State
	failures     int
	successes    int
	probing      bool
	minRequests  int
	failureRatio float64
	openedAt     time.Time
	openFor      time.Duration
	target       string
	now          func() time.Time
}

// NewBreaker constructs a breaker that opens when the failure ratio reaches
// failureRatio after at least minRequests outcomes.
func NewBreaker(minRequests int, failureRatio float64, openFor time.Duration) *Breaker {
	if minRequests <= 0 {
		minRequests = 1
	}
	if failureRatio <= 0 {
		failureRatio = 0.5
	}
	failureRatio = min(failureRatio, 1)
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &Breaker{
		state:        Closed,
		minRequests:  minRequests,
		failureRatio: failureRatio,
		openFor:      openFor,
		target:       "default",
		now:          time.Now,
	}
}

// WithTarget sets the dependency name used for metric labels and logs.
func (b *Breaker) WithTarget(target string) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t := strings.TrimSpace(target); t != "" {
		b.target = t
	}
	b.recordStateLocked()
	return b
}

// WithClock overrides time.Now.
func (b *Breaker) WithClock(now func() time.Time) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
	return b
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a request may proceed. After the cool-off an open
// breaker admits exactly one probe.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.now().Sub(b.openedAt) < b.openFor {
			return false
		}
		b.changeStateLocked(ctx, HalfOpen)
		b.probing = true
		return true
	case HalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return true
	}
}

// Report records the outcome of an admitted request.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		b.probing = false
		if success {
			b.changeStateLocked(ctx, Closed)
		} else {
			b.changeStateLocked(ctx, Open)
		}
		return
	}

	if success {
		b.successes++
	} else {
		b.failures++
	}
	total := b.failures + b.successes
	if total < b.minRequests {
		return
	}
	if float64(b.failures)/float64(total) >= b.failureRatio {
		b.changeStateLocked(ctx, Open)
	} else if total > b.minRequests*2 {
		// decay so old outcomes weigh less
		b.successes = int(math.Ceil(float64(b.successes) * 0.5))
		b.failures = int(math.Ceil(float64(b.failures) * 0.5))
	}
}

// Do runs fn when the breaker admits it. isFailure decides which errors count
// against the dependency; nil treats every error as a failure.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error, isFailure func(error) bool) error {
	if !b.Allow(ctx) {
		return ErrOpenCircuit
	}
	err := fn(ctx)
	failed := err != nil
	if failed && isFailure != nil {
		failed = isFailure(err)
	}
	b.Report(ctx, !failed)
	return err
}

// Backoff returns base·2^(attempt-1) with ±jitterPct random spread.
func Backoff(base time.Duration, attempt int, jitterPct float64) time.Duration {
	attempt = max(attempt, 1)
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base * time.Duration(1<<uint(attempt-1))
	if jitterPct <= 0 {
		return d
	}
	jitter := float64(d) * jitterPct
	delta := (rand.Float64()*2 - 1) * jitter
	return d + time.Duration(delta)
}

func (b *Breaker) changeStateLocked(ctx context.Context, next State) {
	prev := b.state
	if prev == next {
		return
	}
	b.state = next
	switch next {
	case Open:
		b.openedAt = b.now()
	case Closed:
		b.openedAt = time.Time{}
	}
	b.failures = 0
	b.successes = 0
	b.recordStateLocked()
	if BreakerTransitions != nil {
		BreakerTransitions.WithLabelValues(b.target, prev.String(), next.String()).Inc()
	}
	evt := zerolog.Ctx(ctx).Info().Str("target", b.target).Str("from_state", prev.String()).Str("to_state", next.String())
	if span := trace.SpanContextFromContext(ctx); span.IsValid() {
		evt = evt.Str("trace_id", span.TraceID().String())
	}
	evt.Msg("breaker_transition")
}

func (b *Breaker) recordStateLocked() {
	if BreakerState == nil {
		return
	}
	BreakerState.WithLabelValues(b.target).Set(float64(b.state))
}
