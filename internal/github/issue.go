// Package github provides the optional issue-tracker integration.
//
// All operations shell out to the gh CLI. Close and label calls are
// fire-and-forget: their failures are logged by callers at most and never
// affect batch state.
package github

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// commandTimeout bounds every gh invocation.
const commandTimeout = 30 * time.Second

// ParseIssueList parses a comma-separated issue list like "12,13,40".
// Whitespace around numbers is tolerated; empty segments are rejected.
func ParseIssueList(list string) ([]int, error) {
	if strings.TrimSpace(list) == "" {
		return nil, fmt.Errorf("empty issue list")
	}

	parts := strings.Split(list, ",")
	numbers := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid issue number %q: %w", part, err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("issue number must be positive, got %d", n)
		}
		numbers = append(numbers, n)
	}
	return numbers, nil
}

// FetchIssue fetches an issue's title and body via the gh CLI, which infers
// the repository from the current directory's git remote.
func FetchIssue(number int) (string, error) {
	if number <= 0 {
		return "", fmt.Errorf("issue number must be positive, got %d", number)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "gh", "issue", "view", strconv.Itoa(number),
		"--json", "title,body",
		"--jq", `.title + "\n\n" + .body`)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("fetch issue #%d: %w\nOutput: %s", number, err, string(output))
	}

	content := strings.TrimSpace(string(output))
	if content == "" {
		return "", fmt.Errorf("issue #%d has no content", number)
	}
	return content, nil
}

// CloseIssue closes an issue after its feature completed.
// Fire-and-forget: the error return is informational only.
func CloseIssue(number int, comment string) error {
	if number <= 0 {
		return fmt.Errorf("issue number must be positive, got %d", number)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	args := []string{"issue", "close", strconv.Itoa(number)}
	if comment != "" {
		args = append(args, "--comment", comment)
	}
	if output, err := exec.CommandContext(ctx, "gh", args...).CombinedOutput(); err != nil {
		return fmt.Errorf("close issue #%d: %w\nOutput: %s", number, err, string(output))
	}
	return nil
}

// LabelIssue adds a label to an issue, typically "blocked" after a
// permanent failure. Fire-and-forget like CloseIssue.
func LabelIssue(number int, label string) error {
	if number <= 0 {
		return fmt.Errorf("issue number must be positive, got %d", number)
	}
	if label == "" {
		return fmt.Errorf("label cannot be empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "gh", "issue", "edit", strconv.Itoa(number), "--add-label", label)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("label issue #%d: %w\nOutput: %s", number, err, string(output))
	}
	return nil
}
