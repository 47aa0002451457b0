// Package retry decides whether another attempt is permitted and computes
// advisory backoff delays.
//
// The policy never sleeps: Delay returns how long the caller should wait,
// keeping the component synchronous and testable.
package retry

import (
	"math/rand"
	"time"
)

// Default policy values.
const (
	DefaultMaxIterations = 5
	DefaultBaseDelay     = 100 * time.Millisecond
	DefaultMaxDelay      = 1600 * time.Millisecond
	DefaultJitterFrac    = 0.2
)

// Reason identifies why a retry was blocked. When several limits are
// exceeded at once, callers report the first reason in precedence order:
// iteration cap, then circuit breaker, then token budget.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonIterationCap
	ReasonCircuitOpen
	ReasonTokenBudget
)

// String returns the human-readable name of the reason.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonIterationCap:
		return "iteration cap reached"
	case ReasonCircuitOpen:
		return "circuit breaker open"
	case ReasonTokenBudget:
		return "token budget exceeded"
	default:
		return "unknown"
	}
}

// Policy holds retry limits and backoff parameters.
type Policy struct {
	// MaxIterations caps attempts per retryable unit.
	MaxIterations int

	// TokenLimit caps cumulative resource cost. Zero means unlimited.
	TokenLimit int64

	// BaseDelay is the backoff for attempt 0; each attempt doubles it.
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff before jitter.
	MaxDelay time.Duration

	// JitterFrac is the maximum uniform perturbation applied to a delay,
	// as a fraction of the computed value. Zero disables jitter.
	JitterFrac float64
}

// NewPolicy returns a Policy with the default limits.
func NewPolicy() *Policy {
	return &Policy{
		MaxIterations: DefaultMaxIterations,
		BaseDelay:     DefaultBaseDelay,
		MaxDelay:      DefaultMaxDelay,
		JitterFrac:    DefaultJitterFrac,
	}
}

// Check reports whether another attempt is permitted. When blocked, the
// returned Reason is the first limit matched in precedence order.
func (p *Policy) Check(iterationCount int, breakerOpen bool, tokensUsed int64) (bool, Reason) {
	if iterationCount >= p.MaxIterations {
		return false, ReasonIterationCap
	}
	if breakerOpen {
		return false, ReasonCircuitOpen
	}
	if p.TokenLimit > 0 && tokensUsed > p.TokenLimit {
		return false, ReasonTokenBudget
	}
	return true, ReasonNone
}

// Delay returns the advisory backoff before retrying attempt number attempt
// (zero-based): BaseDelay * 2^attempt, capped at MaxDelay, with up to
// ±JitterFrac uniform jitter. With base 100ms and cap 1600ms, attempts 0..4
// yield 100, 200, 400, 800, 1600 ms before jitter.
func (p *Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := p.MaxDelay
	// Shifting past 62 bits overflows; anything that large is capped anyway.
	if attempt < 32 {
		d = p.BaseDelay << uint(attempt)
		if d <= 0 || d > p.MaxDelay {
			d = p.MaxDelay
		}
	}
	if p.JitterFrac > 0 {
		jitter := (rand.Float64()*2 - 1) * p.JitterFrac * float64(d)
		d += time.Duration(jitter)
		if d < 0 {
			d = 0
		}
	}
	return d
}
