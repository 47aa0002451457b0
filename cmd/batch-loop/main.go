package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/CodexForgeBR/batch-loop/internal/agent"
	"github.com/CodexForgeBR/batch-loop/internal/banner"
	"github.com/CodexForgeBR/batch-loop/internal/batch"
	"github.com/CodexForgeBR/batch-loop/internal/batchfile"
	"github.com/CodexForgeBR/batch-loop/internal/cli"
	"github.com/CodexForgeBR/batch-loop/internal/config"
	"github.com/CodexForgeBR/batch-loop/internal/exitcode"
	ghissue "github.com/CodexForgeBR/batch-loop/internal/github"
	"github.com/CodexForgeBR/batch-loop/internal/logging"
	sighandler "github.com/CodexForgeBR/batch-loop/internal/signal"
	"github.com/CodexForgeBR/batch-loop/internal/state"
)

// projectConfigFile is the per-repo config file checked by default.
const projectConfigFile = ".batch-loop.conf"

// version vars injected via ldflags at build time
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cfg := config.NewDefaultConfig()

	rootCmd := &cobra.Command{
		Use:     "batch-loop",
		Short:   "Batch feature orchestrator with bounded retries and checkpoint resume",
		Long:    "Batch Loop dispatches a queue of feature-implementation tasks to an AI agent runtime, with circuit-breaker-guarded retries and crash-safe state persistence.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.ValidateFlags(cmd, cfg); err != nil {
				return err
			}
			return run(cmd, cfg)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cli.BindFlags(rootCmd, cfg)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitcode.Error)
	}
}

// buildCLIOverrides creates a map of CLI flag overrides from the config.
// Uses cmd.Flags().Changed() to only include flags explicitly set by the
// user, ensuring config file values are not accidentally overridden by
// default values.
func buildCLIOverrides(cmd *cobra.Command, cfg *config.Config) map[string]string {
	overrides := make(map[string]string)

	stringFlags := map[string]struct {
		key string
		val string
	}{
		"agent-cli":      {"AGENT_CLI", cfg.AgentCLI},
		"agent-model":    {"AGENT_MODEL", cfg.AgentModel},
		"state-dir":      {"STATE_DIR", cfg.StateDir},
		"notify-webhook": {"NOTIFY_WEBHOOK", cfg.NotifyWebhook},
		"notify-channel": {"NOTIFY_CHANNEL", cfg.NotifyChannel},
		"notify-chat-id": {"NOTIFY_CHAT_ID", cfg.NotifyChatID},
	}
	for flag, mapping := range stringFlags {
		if cmd.Flags().Changed(flag) {
			overrides[mapping.key] = mapping.val
		}
	}

	intFlags := map[string]struct {
		key string
		val int
	}{
		"max-iterations":          {"MAX_ITERATIONS", cfg.MaxIterations},
		"max-retries-per-feature": {"MAX_RETRIES_PER_FEATURE", cfg.MaxRetriesPerFeature},
		"global-retry-limit":      {"GLOBAL_RETRY_LIMIT", cfg.GlobalRetryLimit},
		"breaker-threshold":       {"BREAKER_THRESHOLD", cfg.BreakerThreshold},
		"base-delay-ms":           {"BASE_DELAY_MS", cfg.BaseDelayMs},
		"max-delay-ms":            {"MAX_DELAY_MS", cfg.MaxDelayMs},
	}
	for flag, mapping := range intFlags {
		if cmd.Flags().Changed(flag) {
			overrides[mapping.key] = fmt.Sprintf("%d", mapping.val)
		}
	}

	if cmd.Flags().Changed("token-limit") {
		overrides["TOKEN_LIMIT"] = fmt.Sprintf("%d", cfg.TokenLimit)
	}

	boolFlags := map[string]struct {
		key string
		val bool
	}{
		"no-sort":       {"NO_SORT", cfg.NoSort},
		"verify-stages": {"VERIFY_STAGES", cfg.VerifyStages},
		"close-issues":  {"CLOSE_ISSUES", cfg.CloseIssues},
		"verbose":       {"VERBOSE", cfg.Verbose},
	}
	for flag, mapping := range boolFlags {
		if cmd.Flags().Changed(flag) {
			overrides[mapping.key] = fmt.Sprintf("%t", mapping.val)
		}
	}

	return overrides
}

func run(cmd *cobra.Command, cfg *config.Config) error {
	cliOverrides := buildCLIOverrides(cmd, cfg)

	finalCfg, err := config.LoadWithPrecedence("", projectConfigFile, cfg.ConfigFile, cliOverrides)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Merge CLI-only flags (not in config files).
	finalCfg.ConfigFile = cfg.ConfigFile
	finalCfg.BatchFile = cfg.BatchFile
	finalCfg.Issues = cfg.Issues
	finalCfg.ResumeID = cfg.ResumeID
	finalCfg.ResumeForce = cfg.ResumeForce
	finalCfg.StatusID = cfg.StatusID
	finalCfg.CleanID = cfg.CleanID
	cfg = finalCfg

	logging.SetVerbose(cfg.Verbose)

	store := state.NewStore(cfg.StateDir)
	if err := store.Init(); err != nil {
		return err
	}

	// Maintenance modes exit before any agent dispatch.
	if cfg.StatusID != "" {
		return showStatus(store, cfg.StatusID)
	}
	if cfg.CleanID != "" {
		return cleanBatch(store, cfg.CleanID)
	}

	avail := agent.CheckAvailability(cfg.AgentCLI)
	if !avail[cfg.AgentCLI] {
		return fmt.Errorf("required tool not found: %s", cfg.AgentCLI)
	}

	runner := &agent.CLIRunner{
		Command: cfg.AgentCLI,
		Args:    agentArgs(cfg),
		Verbose: cfg.Verbose,
	}
	orch := batch.NewOrchestrator(cfg, store, runner)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sighandler.SetupSignalHandler(ctx, cancel, func() {
		logging.Warn("Interrupted — saving state...")
	})

	var b *state.BatchState
	switch {
	case cfg.ResumeID != "":
		b, err = orch.Resume(cfg.ResumeID, cfg.ResumeForce)
		if err != nil {
			return fmt.Errorf("resume: %w", err)
		}
		banner.PrintStartupBanner(b.BatchID, cfg.AgentCLI, b.BatchFile, len(b.Features))

	case cfg.Issues != "":
		features, err := featuresFromIssues(cfg.Issues)
		if err != nil {
			return err
		}
		b, err = orch.NewBatch(features, "", "")
		if err != nil {
			return fmt.Errorf("create batch: %w", err)
		}
		banner.PrintStartupBanner(b.BatchID, cfg.AgentCLI, "issues "+cfg.Issues, len(b.Features))

	default:
		features, err := batchfile.Parse(cfg.BatchFile)
		if err != nil {
			return err
		}
		hash, err := batchfile.HashFile(cfg.BatchFile)
		if err != nil {
			return fmt.Errorf("hash batch file: %w", err)
		}
		b, err = orch.NewBatch(features, cfg.BatchFile, hash)
		if err != nil {
			return fmt.Errorf("create batch: %w", err)
		}
		banner.PrintStartupBanner(b.BatchID, cfg.AgentCLI, cfg.BatchFile, len(b.Features))
	}

	os.Exit(orch.Run(ctx, b))
	return nil // unreachable
}

// agentArgs builds the fixed argument list passed to the agent CLI before
// the prompt.
func agentArgs(cfg *config.Config) []string {
	args := []string{"--print", "--dangerously-skip-permissions"}
	if cfg.AgentModel != "" {
		args = append(args, "--model", cfg.AgentModel)
	}
	return args
}

// featuresFromIssues builds a feature queue from GitHub issue numbers.
// Issue content becomes the feature description; a fetch failure falls
// back to a reference by number so the batch can still run.
func featuresFromIssues(list string) ([]state.Feature, error) {
	numbers, err := ghissue.ParseIssueList(list)
	if err != nil {
		return nil, err
	}

	features := make([]state.Feature, 0, len(numbers))
	for _, n := range numbers {
		desc, err := ghissue.FetchIssue(n)
		if err != nil {
			logging.Warn(fmt.Sprintf("Failed to fetch issue #%d, using reference only: %v", n, err))
			desc = fmt.Sprintf("Implement GitHub issue #%d", n)
		}
		features = append(features, state.Feature{
			Description: desc,
			Status:      state.FeaturePending,
			IssueNumber: n,
		})
	}
	return features, nil
}

func showStatus(store *state.Store, batchID string) error {
	b, err := store.LoadBatch(batchID)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			logging.Info(fmt.Sprintf("No batch found with id %s", batchID))
			return nil
		}
		return err
	}
	banner.PrintStatusBanner(b)
	return nil
}

func cleanBatch(store *state.Store, batchID string) error {
	if err := store.DeleteBatch(batchID); err != nil {
		return err
	}
	if err := store.DeleteCheckpoint(batchID); err != nil {
		return err
	}
	if err := store.DeleteBatchLoops(batchID); err != nil {
		return err
	}
	logging.Info(fmt.Sprintf("Removed state for batch %s", batchID))
	return nil
}
