// Package cli provides flag binding and validation for the batch-loop CLI.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/CodexForgeBR/batch-loop/internal/config"
)

// BindFlags registers all CLI flags on the given cobra command.
// The flags directly modify fields in the provided config pointer.
// Call ValidateFlags after parsing to check flag combinations.
func BindFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	// Batch input (pick one).
	flags.StringVar(&cfg.BatchFile, "batch", "", "Path to batch file (YAML feature list or markdown checklist)")
	flags.StringVar(&cfg.Issues, "issues", "", "Comma-separated GitHub issue numbers to batch (e.g. 12,13,40)")
	flags.StringVar(&cfg.ResumeID, "resume", "", "Resume the batch with this id")
	flags.BoolVar(&cfg.ResumeForce, "resume-force", false, "Resume even if the batch file changed")

	// Maintenance.
	flags.StringVar(&cfg.StatusID, "status", "", "Show status for the batch with this id and exit")
	flags.StringVar(&cfg.CleanID, "clean", "", "Delete state files for the batch with this id and exit")

	// Agent dispatch.
	flags.StringVar(&cfg.AgentCLI, "agent-cli", "claude", "Agent CLI to dispatch features to")
	flags.StringVar(&cfg.AgentModel, "agent-model", "", "Model passed to the agent CLI")

	// Retry limits.
	flags.IntVar(&cfg.MaxIterations, "max-iterations", 5, "Max attempts per retry loop")
	flags.IntVar(&cfg.MaxRetriesPerFeature, "max-retries-per-feature", 3, "Max attempts per feature")
	flags.IntVar(&cfg.GlobalRetryLimit, "global-retry-limit", 20, "Max retries across the whole batch")
	flags.IntVar(&cfg.BreakerThreshold, "breaker-threshold", 3, "Consecutive failures that open the circuit breaker")
	flags.Int64Var(&cfg.TokenLimit, "token-limit", 0, "Token budget per retry loop (0 = unlimited)")
	flags.IntVar(&cfg.BaseDelayMs, "base-delay-ms", 100, "Base backoff delay in milliseconds")
	flags.IntVar(&cfg.MaxDelayMs, "max-delay-ms", 1600, "Backoff delay cap in milliseconds")

	// State persistence.
	flags.StringVar(&cfg.StateDir, "state-dir", ".batch-loop", "Directory for state files")

	// Feature toggles.
	flags.BoolVar(&cfg.NoSort, "no-sort", false, "Skip dependency-based feature ordering")
	flags.BoolVar(&cfg.VerifyStages, "verify-stages", false, "Require stage completion markers in agent output before accepting a feature")
	flags.BoolVar(&cfg.CloseIssues, "close-issues", true, "Close linked issues when features complete")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable debug output")

	// Config file.
	flags.StringVar(&cfg.ConfigFile, "config", "", "Path to additional config file")

	// Notifications.
	flags.StringVar(&cfg.NotifyWebhook, "notify-webhook", "http://127.0.0.1:18789/webhook", "Notification webhook URL")
	flags.StringVar(&cfg.NotifyChannel, "notify-channel", "telegram", "Notification channel")
	flags.StringVar(&cfg.NotifyChatID, "notify-chat-id", "", "Recipient chat ID")
}

// ValidateFlags checks for invalid flag combinations after parsing.
// Must be called after cmd.Execute() or cmd.ParseFlags().
func ValidateFlags(cmd *cobra.Command, cfg *config.Config) error {
	// Exactly one input mode: --batch, --issues, --resume, --status, --clean.
	modes := 0
	for _, set := range []bool{
		cfg.BatchFile != "",
		cfg.Issues != "",
		cfg.ResumeID != "",
		cfg.StatusID != "",
		cfg.CleanID != "",
	} {
		if set {
			modes++
		}
	}
	if modes == 0 {
		return fmt.Errorf("one of --batch, --issues, --resume, --status, or --clean is required")
	}
	if modes > 1 {
		return fmt.Errorf("--batch, --issues, --resume, --status, and --clean are mutually exclusive")
	}

	// --batch must exist if provided.
	if cfg.BatchFile != "" {
		if _, err := os.Stat(cfg.BatchFile); err != nil {
			return fmt.Errorf("--batch: %w", err)
		}
	}

	// --config must exist if provided.
	if cfg.ConfigFile != "" {
		if _, err := os.Stat(cfg.ConfigFile); err != nil {
			return fmt.Errorf("--config: %w", err)
		}
	}

	// --resume-force only makes sense with --resume.
	if cfg.ResumeForce && cfg.ResumeID == "" {
		return fmt.Errorf("--resume-force requires --resume")
	}

	if cfg.MaxRetriesPerFeature < 1 {
		return fmt.Errorf("--max-retries-per-feature must be at least 1, got %d", cfg.MaxRetriesPerFeature)
	}
	if cfg.BreakerThreshold < 1 {
		return fmt.Errorf("--breaker-threshold must be at least 1, got %d", cfg.BreakerThreshold)
	}

	return nil
}
