// Package verify confirms that every expected pipeline stage ran for a
// unit of work and decides whether missing stages warrant a loop-back
// retry.
//
// The verifier never blocks its caller: every Evaluate call returns a
// decision (complete, loop back, or give up) and the caller chooses what to
// do with it.
package verify

import (
	"time"

	"github.com/CodexForgeBR/batch-loop/internal/breaker"
	"github.com/CodexForgeBR/batch-loop/internal/retry"
	"github.com/CodexForgeBR/batch-loop/internal/state"
)

// ExpectedStages is the fixed ordered pipeline every unit of work runs
// through.
var ExpectedStages = []string{
	"researcher",
	"planner",
	"test-designer",
	"implementer",
	"reviewer",
	"security-reviewer",
	"documenter",
	"committer",
}

// Action is the verifier's advisory decision.
type Action int

const (
	// ActionComplete means every expected stage was observed.
	ActionComplete Action = iota

	// ActionLoopBack means stages are missing and a retry is permitted.
	ActionLoopBack

	// ActionGiveUp means stages are missing and the retry budget is spent.
	ActionGiveUp
)

// String returns the lowercase name of the action.
func (a Action) String() string {
	switch a {
	case ActionComplete:
		return "complete"
	case ActionLoopBack:
		return "loop_back"
	default:
		return "give_up"
	}
}

// Result is the outcome of one completion check.
type Result struct {
	Complete bool
	// Missing lists expected-but-absent stages in pipeline order.
	Missing []string
}

// Check compares the observed stage names against ExpectedStages.
// Observation order does not matter; the missing list keeps pipeline order.
func Check(observed []string) Result {
	seen := make(map[string]bool, len(observed))
	for _, s := range observed {
		seen[s] = true
	}

	var missing []string
	for _, want := range ExpectedStages {
		if !seen[want] {
			missing = append(missing, want)
		}
	}
	return Result{Complete: len(missing) == 0, Missing: missing}
}

// Decision is the verifier's advisory output for one evaluation.
type Decision struct {
	Action  Action
	Missing []string
	// Delay is the advisory backoff before the loop-back, zero otherwise.
	Delay time.Duration
	// Reason is set when Action is ActionGiveUp.
	Reason retry.Reason
	// LoopBack is the persistable retry request, nil unless looping back.
	LoopBack *state.LoopBack
}

// Verifier applies a bounded retry/breaker/backoff family to completion
// checks. It is parameterized independently of the feature retry loop.
type Verifier struct {
	policy   *retry.Policy
	breaker  *breaker.Breaker
	attempts int
}

// New returns a Verifier using the given policy and breaker threshold.
func New(policy *retry.Policy, threshold int) *Verifier {
	if policy == nil {
		policy = retry.NewPolicy()
	}
	return &Verifier{
		policy:  policy,
		breaker: breaker.New(threshold),
	}
}

// Evaluate runs one completion check for sessionID and returns the
// advisory decision. An incomplete check counts as a verification attempt
// and a breaker failure; a complete check resets the failure run.
func (v *Verifier) Evaluate(sessionID string, observed []string) Decision {
	res := Check(observed)
	if res.Complete {
		v.breaker.RecordSuccess()
		return Decision{Action: ActionComplete}
	}

	v.attempts++
	v.breaker.RecordFailure()

	ok, reason := v.policy.Check(v.attempts, v.breaker.IsOpen(), 0)
	if !ok {
		return Decision{Action: ActionGiveUp, Missing: res.Missing, Reason: reason}
	}

	return Decision{
		Action:  ActionLoopBack,
		Missing: res.Missing,
		Delay:   v.policy.Delay(v.attempts - 1),
		LoopBack: &state.LoopBack{
			SessionID: sessionID,
			Missing:   res.Missing,
			Attempt:   v.attempts,
			CreatedAt: time.Now().Format(time.RFC3339),
		},
	}
}

// Attempts returns how many incomplete checks have been evaluated.
func (v *Verifier) Attempts() int {
	return v.attempts
}
