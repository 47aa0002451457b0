// Package breaker implements the consecutive-failure circuit breaker that
// gates retries across the batch-loop core.
//
// The breaker opens once consecutive failures reach the threshold and stays
// open until an explicit Reset. There is no automatic timeout: the dominant
// failure mode is a permanent error (for example a syntax error in generated
// code) that will not self-heal with time.
package breaker

// DefaultThreshold is the number of consecutive failures that opens the
// breaker when no explicit threshold is configured.
const DefaultThreshold = 3

// Breaker tracks consecutive failures against a threshold.
type Breaker struct {
	threshold           int
	consecutiveFailures int
	open                bool
}

// New returns a closed breaker with the given threshold. Thresholds below 1
// fall back to DefaultThreshold.
func New(threshold int) *Breaker {
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	return &Breaker{threshold: threshold}
}

// Restore rebuilds a breaker from persisted loop state. The open latch is
// restored as-is so a breaker tripped before a restart stays tripped.
func Restore(threshold, consecutiveFailures int, open bool) *Breaker {
	b := New(threshold)
	if consecutiveFailures < 0 {
		consecutiveFailures = 0
	}
	b.consecutiveFailures = consecutiveFailures
	b.open = open || consecutiveFailures >= b.threshold
	return b
}

// RecordFailure increments the consecutive-failure count and opens the
// breaker when the count reaches the threshold.
func (b *Breaker) RecordFailure() {
	b.consecutiveFailures++
	if b.consecutiveFailures >= b.threshold {
		b.open = true
	}
}

// RecordSuccess resets the consecutive-failure count to zero. It does not
// close an already-open breaker; only Reset does.
func (b *Breaker) RecordSuccess() {
	b.consecutiveFailures = 0
}

// IsOpen reports whether the breaker is blocking retries.
func (b *Breaker) IsOpen() bool {
	return b.open
}

// ConsecutiveFailures returns the current consecutive-failure count.
func (b *Breaker) ConsecutiveFailures() int {
	return b.consecutiveFailures
}

// Threshold returns the configured opening threshold.
func (b *Breaker) Threshold() int {
	return b.threshold
}

// Reset closes the breaker and clears the failure count. This is an
// explicit administrative action, typically taken by a human operator after
// diagnosing the underlying failure.
func (b *Breaker) Reset() {
	b.consecutiveFailures = 0
	b.open = false
}
