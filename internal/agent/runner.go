// Package agent defines the dispatch interface to the external agent
// runtime and its subprocess-backed implementation.
//
// The orchestration core treats the agent as an opaque collaborator: one
// synchronous call per feature, one aggregated result back. Nothing in the
// result is interpreted beyond success/failure and an optional token-usage
// line.
package agent

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// Result is the outcome of one agent invocation.
type Result struct {
	Success    bool
	Output     string
	Error      string
	TokensUsed int64

	// Stages lists the pipeline stage names the agent reported complete,
	// in transcript order. Empty when the transcript carries no markers.
	Stages []string
}

// Runner dispatches one feature description to the agent runtime.
// Implementations must be synchronous; any internal concurrency is the
// collaborator's business.
type Runner interface {
	Invoke(ctx context.Context, description string) (*Result, error)
}

// tokenUsageLine matches the usage footer some agent CLIs emit,
// e.g. "tokens used: 12345".
var tokenUsageLine = regexp.MustCompile(`(?i)tokens?\s+used:?\s+(\d+)`)

// stageMarker matches stage completion lines in agent transcripts,
// e.g. "stage complete: researcher".
var stageMarker = regexp.MustCompile(`(?im)^\s*stage\s+complete:\s*([a-z][a-z-]*)\s*$`)

// CLIRunner implements Runner by shelling out to an agent CLI.
type CLIRunner struct {
	// Command is the agent CLI binary, e.g. "claude".
	Command string

	// Args are passed before the prompt, e.g. ["--print", "--model", "opus"].
	Args []string

	Verbose bool
}

// Invoke runs the agent CLI with the feature description as its prompt.
// A nonzero exit status is a failed invocation, not an error: the combined
// output becomes the failure text for classification. Errors are reserved
// for dispatch problems (binary missing, context canceled).
func (r *CLIRunner) Invoke(ctx context.Context, description string) (*Result, error) {
	if r.Command == "" {
		return nil, fmt.Errorf("agent command not configured")
	}

	args := append([]string(nil), r.Args...)
	if r.Verbose {
		args = append(args, "--verbose")
	}
	args = append(args, "--prompt", description)

	cmd := exec.CommandContext(ctx, r.Command, args...)
	out, runErr := cmd.CombinedOutput()
	output := string(out)

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	res := &Result{
		Output:     output,
		TokensUsed: parseTokensUsed(output),
		Stages:     parseStages(output),
	}
	if runErr != nil {
		if _, ok := runErr.(*exec.ExitError); !ok {
			return nil, fmt.Errorf("dispatch %s: %w", r.Command, runErr)
		}
		res.Error = failureText(output, runErr)
		return res, nil
	}
	res.Success = true
	return res, nil
}

// CheckAvailability checks if the given tools are available in PATH.
// Returns a map of tool name to availability status.
func CheckAvailability(tools ...string) map[string]bool {
	result := make(map[string]bool, len(tools))
	for _, tool := range tools {
		_, err := exec.LookPath(tool)
		result[tool] = err == nil
	}
	return result
}

// parseTokensUsed extracts the cumulative token count from agent output.
// Returns 0 when no usage line is present.
func parseTokensUsed(output string) int64 {
	match := tokenUsageLine.FindStringSubmatch(output)
	if match == nil {
		return 0
	}
	n, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// parseStages extracts stage completion markers from agent output.
func parseStages(output string) []string {
	matches := stageMarker.FindAllStringSubmatch(output, -1)
	if len(matches) == 0 {
		return nil
	}
	stages := make([]string, 0, len(matches))
	for _, m := range matches {
		stages = append(stages, strings.ToLower(m[1]))
	}
	return stages
}

// failureText picks the error text used for classification: the tail of the
// output when present, else the exec error itself.
func failureText(output string, runErr error) string {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return runErr.Error()
	}
	// Keep the tail; error summaries are at the end of agent transcripts.
	const maxLen = 2000
	if len(trimmed) > maxLen {
		trimmed = trimmed[len(trimmed)-maxLen:]
	}
	return trimmed
}
