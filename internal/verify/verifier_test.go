package verify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodexForgeBR/batch-loop/internal/retry"
)

func allStages() []string {
	return append([]string(nil), ExpectedStages...)
}

func testPolicy() *retry.Policy {
	return &retry.Policy{
		MaxIterations: 3,
		BaseDelay:     100 * time.Millisecond,
		MaxDelay:      1600 * time.Millisecond,
		JitterFrac:    0,
	}
}

func TestCheckComplete(t *testing.T) {
	res := Check(allStages())
	assert.True(t, res.Complete)
	assert.Empty(t, res.Missing)
}

func TestCheckOrderDoesNotMatter(t *testing.T) {
	shuffled := []string{
		"committer", "researcher", "documenter", "planner",
		"security-reviewer", "implementer", "reviewer", "test-designer",
	}
	res := Check(shuffled)
	assert.True(t, res.Complete)
}

func TestCheckMissingKeepsPipelineOrder(t *testing.T) {
	observed := []string{"planner", "implementer", "committer"}
	res := Check(observed)
	assert.False(t, res.Complete)
	assert.Equal(t, []string{"researcher", "test-designer", "reviewer", "security-reviewer", "documenter"}, res.Missing)
}

func TestCheckExtraStagesIgnored(t *testing.T) {
	res := Check(append(allStages(), "linter", "extra-pass"))
	assert.True(t, res.Complete)
}

func TestCheckEmptyObservation(t *testing.T) {
	res := Check(nil)
	assert.False(t, res.Complete)
	assert.Equal(t, ExpectedStages, res.Missing)
}

func TestEvaluateComplete(t *testing.T) {
	v := New(testPolicy(), 3)

	d := v.Evaluate("sess", allStages())
	assert.Equal(t, ActionComplete, d.Action)
	assert.Nil(t, d.LoopBack)
	assert.Equal(t, 0, v.Attempts())
}

func TestEvaluateLoopBackThenGiveUp(t *testing.T) {
	v := New(testPolicy(), 5) // breaker threshold above the iteration cap
	observed := []string{"researcher", "planner"}

	// MaxIterations 3: attempts 1 and 2 loop back, attempt 3 gives up.
	d1 := v.Evaluate("sess", observed)
	require.Equal(t, ActionLoopBack, d1.Action)
	assert.Equal(t, 100*time.Millisecond, d1.Delay)
	require.NotNil(t, d1.LoopBack)
	assert.Equal(t, "sess", d1.LoopBack.SessionID)
	assert.Equal(t, 1, d1.LoopBack.Attempt)
	assert.Contains(t, d1.Missing, "committer")

	d2 := v.Evaluate("sess", observed)
	require.Equal(t, ActionLoopBack, d2.Action)
	assert.Equal(t, 200*time.Millisecond, d2.Delay)

	d3 := v.Evaluate("sess", observed)
	assert.Equal(t, ActionGiveUp, d3.Action)
	assert.Equal(t, retry.ReasonIterationCap, d3.Reason)
	assert.Nil(t, d3.LoopBack)
}

func TestEvaluateBreakerTripsFirst(t *testing.T) {
	policy := testPolicy()
	policy.MaxIterations = 10
	v := New(policy, 2)
	observed := []string{"researcher"}

	d1 := v.Evaluate("sess", observed)
	assert.Equal(t, ActionLoopBack, d1.Action)

	// Second consecutive incomplete check opens the threshold-2 breaker.
	d2 := v.Evaluate("sess", observed)
	assert.Equal(t, ActionGiveUp, d2.Action)
	assert.Equal(t, retry.ReasonCircuitOpen, d2.Reason)
}

func TestEvaluateCompleteResetsFailureRun(t *testing.T) {
	policy := testPolicy()
	policy.MaxIterations = 10
	v := New(policy, 3)
	incomplete := []string{"researcher"}

	v.Evaluate("sess", incomplete)
	v.Evaluate("sess", incomplete)
	d := v.Evaluate("sess", allStages())
	assert.Equal(t, ActionComplete, d.Action)

	// The success broke the consecutive-failure run, so two more
	// incomplete checks do not trip the threshold-3 breaker.
	d1 := v.Evaluate("sess", incomplete)
	assert.Equal(t, ActionLoopBack, d1.Action)
	d2 := v.Evaluate("sess", incomplete)
	assert.Equal(t, ActionLoopBack, d2.Action)
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "complete", ActionComplete.String())
	assert.Equal(t, "loop_back", ActionLoopBack.String())
	assert.Equal(t, "give_up", ActionGiveUp.String())
}
