// Package banner provides colored banner display functions for the
// batch-loop CLI.
//
// All banner functions write formatted output to stdout with color-coded
// headers and separators, used at batch start, completion, and the state
// transitions a human operator needs to see.
package banner

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/CodexForgeBR/batch-loop/internal/logging"
	"github.com/CodexForgeBR/batch-loop/internal/state"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold).SprintFunc()
	successColor = color.New(color.FgGreen, color.Bold).SprintFunc()
	errorColor   = color.New(color.FgRed, color.Bold).SprintFunc()
	warnColor    = color.New(color.FgYellow, color.Bold).SprintFunc()
)

const sepLine = "═══════════════════════════════════════════════════"

// PrintStartupBanner displays the startup banner with batch info.
func PrintStartupBanner(batchID string, agentCLI string, source string, featureCount int) {
	sep := headerColor(sepLine)
	fmt.Println(sep)
	fmt.Println(headerColor("  batch-loop - Batch Feature Orchestrator"))
	fmt.Println(sep)
	fmt.Printf("  Batch:      %s\n", batchID)
	fmt.Printf("  Agent:      %s\n", agentCLI)
	fmt.Printf("  Source:     %s\n", source)
	fmt.Printf("  Features:   %d\n", featureCount)
	fmt.Println(sep)
}

// PrintSummaryBanner displays the end-of-batch summary: one line per
// feature plus aggregate counts and duration.
func PrintSummaryBanner(b *state.BatchState, durationSecs int) {
	completed, failed, skipped := 0, 0, 0
	for _, f := range b.Features {
		switch f.Status {
		case state.FeatureCompleted:
			completed++
		case state.FeatureFailed:
			failed++
		case state.FeatureSkipped:
			skipped++
		}
	}

	colorFor := successColor
	if failed > 0 {
		colorFor = warnColor
	}
	sep := colorFor(sepLine)
	fmt.Println(sep)
	if failed == 0 {
		fmt.Println(successColor("  ✓ Batch completed"))
	} else {
		fmt.Println(warnColor("  ⚠ Batch completed with failures"))
	}
	fmt.Println(sep)
	for i, f := range b.Features {
		mark := " "
		switch f.Status {
		case state.FeatureCompleted:
			mark = successColor("✓")
		case state.FeatureFailed:
			mark = errorColor("✗")
		case state.FeatureSkipped:
			mark = "-"
		}
		fmt.Printf("  %s [%d] %s (%s, attempts=%d)\n", mark, i, f.Description, f.Status, f.AttemptCount)
	}
	fmt.Println(sep)
	fmt.Printf("  Completed:  %d\n", completed)
	fmt.Printf("  Failed:     %d\n", failed)
	fmt.Printf("  Skipped:    %d\n", skipped)
	fmt.Printf("  Retries:    %d\n", b.GlobalRetryCount)
	fmt.Printf("  Duration:   %s (%ds)\n", logging.FormatDuration(durationSecs), durationSecs)
	fmt.Println(sep)
}

// PrintCircuitOpenBanner displays the circuit-breaker banner, naming the
// feature that tripped it and the consecutive-failure count so an operator
// can diagnose before resuming.
func PrintCircuitOpenBanner(featureIndex int, description string, consecutiveFailures int) {
	sep := errorColor(sepLine)
	fmt.Println(sep)
	fmt.Println(errorColor("  ✗ CIRCUIT BREAKER OPEN"))
	fmt.Println(sep)
	fmt.Printf("  Feature:    [%d] %s\n", featureIndex, description)
	fmt.Printf("  Failures:   %d consecutive\n", consecutiveFailures)
	fmt.Println("  The batch is paused. Diagnose the failure, then resume.")
	fmt.Println(sep)
}

// PrintInterruptedBanner displays the interrupted banner.
func PrintInterruptedBanner(batchID string, currentIndex, total int) {
	sep := warnColor(sepLine)
	fmt.Println(sep)
	fmt.Println(warnColor("  ⚠ INTERRUPTED"))
	fmt.Println(sep)
	fmt.Printf("  Position:   feature %d of %d\n", currentIndex, total)
	fmt.Printf("  Resume:     batch-loop --resume %s\n", batchID)
	fmt.Println(sep)
}

// PrintStatusBanner displays a batch's persisted status without running it.
func PrintStatusBanner(b *state.BatchState) {
	pending := 0
	completed := 0
	failed := 0
	for _, f := range b.Features {
		switch f.Status {
		case state.FeaturePending, state.FeatureInProgress:
			pending++
		case state.FeatureCompleted:
			completed++
		case state.FeatureFailed:
			failed++
		}
	}

	sep := headerColor(sepLine)
	fmt.Println(sep)
	fmt.Println(headerColor("  batch-loop - Batch Status"))
	fmt.Println(sep)
	fmt.Printf("  Batch:      %s\n", b.BatchID)
	fmt.Printf("  Status:     %s\n", b.Status)
	fmt.Printf("  Cursor:     %d/%d\n", b.CurrentIndex, len(b.Features))
	fmt.Printf("  Completed:  %d\n", completed)
	fmt.Printf("  Failed:     %d\n", failed)
	fmt.Printf("  Pending:    %d\n", pending)
	fmt.Printf("  Retries:    %d\n", b.GlobalRetryCount)
	fmt.Printf("  Created:    %s\n", b.CreatedAt)
	fmt.Printf("  Updated:    %s\n", b.UpdatedAt)
	fmt.Println(sep)
}
