// Package loop manages the bounded retry loop around a single unit of
// agent work.
//
// A Manager owns one persisted LoopState and keeps the circuit breaker and
// retry policy in sync with it: every attempt is recorded and saved
// atomically before the next retry decision is made, so a crash between
// attempts never loses retry history.
package loop

import (
	"errors"
	"time"

	"github.com/CodexForgeBR/batch-loop/internal/breaker"
	"github.com/CodexForgeBR/batch-loop/internal/retry"
	"github.com/CodexForgeBR/batch-loop/internal/state"
)

// Manager coordinates loop state, circuit breaker, and retry policy for one
// session id.
type Manager struct {
	store   *state.Store
	policy  *retry.Policy
	breaker *breaker.Breaker
	st      *state.LoopState
}

// NewManager loads the loop state for sessionID, or starts a fresh one if
// none exists. The circuit breaker is restored from the persisted state, so
// a breaker tripped before a restart stays tripped.
func NewManager(store *state.Store, policy *retry.Policy, threshold int, sessionID string) (*Manager, error) {
	st, err := store.LoadLoop(sessionID)
	if err != nil {
		if !errors.Is(err, state.ErrNotFound) {
			return nil, err
		}
		st = &state.LoopState{
			SchemaVersion: state.CurrentSchemaVersion,
			SessionID:     sessionID,
		}
	}
	return &Manager{
		store:   store,
		policy:  policy,
		breaker: breaker.Restore(threshold, st.ConsecutiveFailures, st.CircuitBreakerOpen),
		st:      st,
	}, nil
}

// State returns the managed loop state.
func (m *Manager) State() *state.LoopState {
	return m.st
}

// Breaker returns the managed circuit breaker.
func (m *Manager) Breaker() *breaker.Breaker {
	return m.breaker
}

// ShouldRetry reports whether another attempt is permitted, and if not, the
// first blocking reason in precedence order (iteration cap, breaker, token
// budget).
func (m *Manager) ShouldRetry() (bool, retry.Reason) {
	return m.policy.Check(m.st.IterationCount, m.breaker.IsOpen(), m.st.TokensUsed)
}

// NextDelay returns the advisory backoff before the next attempt, based on
// how many attempts have already run.
func (m *Manager) NextDelay() time.Duration {
	attempt := m.st.IterationCount - 1
	if attempt < 0 {
		attempt = 0
	}
	return m.policy.Delay(attempt)
}

// RecordAttempt records one attempt's outcome, updates the breaker, and
// persists the loop state. Persistence failures are returned immediately:
// losing retry history silently is worse than halting.
func (m *Manager) RecordAttempt(success bool, errorSummary string, tokens int64) error {
	m.st.IterationCount++
	m.st.TokensUsed += tokens
	if success {
		m.breaker.RecordSuccess()
	} else {
		m.breaker.RecordFailure()
	}
	m.st.ConsecutiveFailures = m.breaker.ConsecutiveFailures()
	m.st.CircuitBreakerOpen = m.breaker.IsOpen()
	m.st.RetryHistory = append(m.st.RetryHistory, state.LoopAttempt{
		Iteration:    m.st.IterationCount,
		Success:      success,
		ErrorSummary: errorSummary,
		Timestamp:    time.Now().Format(time.RFC3339),
	})
	return m.store.SaveLoop(m.st)
}

// ResetBreaker is the explicit administrative reset: it closes the breaker,
// clears the failure count, and persists the change.
func (m *Manager) ResetBreaker() error {
	m.breaker.Reset()
	m.st.ConsecutiveFailures = 0
	m.st.CircuitBreakerOpen = false
	return m.store.SaveLoop(m.st)
}

// Discard removes the persisted loop state. Called on terminal success or
// terminal failure of the unit of work.
func (m *Manager) Discard() error {
	return m.store.DeleteLoop(m.st.SessionID)
}
