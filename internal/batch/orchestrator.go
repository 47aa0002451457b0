// Package batch runs the feature queue: dispatch, failure classification,
// bounded retries, and per-step state persistence.
//
// The orchestrator is single-threaded and synchronous. The only blocking
// points are the agent dispatch and file I/O; state is persisted after
// every mutating step so a crash leaves the cursor and feature statuses
// consistent with the last completed step.
package batch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/CodexForgeBR/batch-loop/internal/agent"
	"github.com/CodexForgeBR/batch-loop/internal/banner"
	"github.com/CodexForgeBR/batch-loop/internal/batchfile"
	"github.com/CodexForgeBR/batch-loop/internal/checkpoint"
	"github.com/CodexForgeBR/batch-loop/internal/classify"
	"github.com/CodexForgeBR/batch-loop/internal/config"
	"github.com/CodexForgeBR/batch-loop/internal/exitcode"
	ghissue "github.com/CodexForgeBR/batch-loop/internal/github"
	"github.com/CodexForgeBR/batch-loop/internal/logging"
	"github.com/CodexForgeBR/batch-loop/internal/loop"
	"github.com/CodexForgeBR/batch-loop/internal/notification"
	"github.com/CodexForgeBR/batch-loop/internal/retry"
	"github.com/CodexForgeBR/batch-loop/internal/state"
	"github.com/CodexForgeBR/batch-loop/internal/verify"
)

// IssueTracker is the optional issue-tracker collaborator. All calls are
// fire-and-forget: failures are logged at most and never affect batch
// state.
type IssueTracker interface {
	Close(number int, comment string) error
	Label(number int, label string) error
}

// ghTracker implements IssueTracker on top of the gh CLI.
type ghTracker struct{}

func (ghTracker) Close(number int, comment string) error {
	return ghissue.CloseIssue(number, comment)
}

func (ghTracker) Label(number int, label string) error {
	return ghissue.LabelIssue(number, label)
}

// Orchestrator processes one batch of features.
type Orchestrator struct {
	Config      *config.Config
	Store       *state.Store
	Runner      agent.Runner
	Classifier  classify.Classifier
	Policy      *retry.Policy
	Checkpoints *checkpoint.Coordinator

	// Issues is nil when issue-tracker integration is disabled.
	Issues IssueTracker

	// Sleep performs the advisory backoff wait; injectable for tests.
	Sleep func(ctx context.Context, d time.Duration)

	startTime time.Time
}

// NewOrchestrator wires an orchestrator from config, store, and runner,
// with the default classifier and a retry policy built from config.
func NewOrchestrator(cfg *config.Config, store *state.Store, runner agent.Runner) *Orchestrator {
	o := &Orchestrator{
		Config:     cfg,
		Store:      store,
		Runner:     runner,
		Classifier: classify.NewPatternClassifier(),
		Policy: &retry.Policy{
			MaxIterations: cfg.MaxIterations,
			TokenLimit:    cfg.TokenLimit,
			BaseDelay:     time.Duration(cfg.BaseDelayMs) * time.Millisecond,
			MaxDelay:      time.Duration(cfg.MaxDelayMs) * time.Millisecond,
			JitterFrac:    retry.DefaultJitterFrac,
		},
		Checkpoints: checkpoint.NewCoordinator(store),
		Sleep:       sleepWithContext,
	}
	if cfg.CloseIssues {
		o.Issues = ghTracker{}
	}
	return o
}

// NewBatch creates and persists a fresh batch from the given feature
// queue. Features are dependency-sorted unless disabled by config.
func (o *Orchestrator) NewBatch(features []state.Feature, sourceFile, sourceHash string) (*state.BatchState, error) {
	if !o.Config.NoSort {
		features = SortByDependencies(features)
	}
	now := time.Now().Format(time.RFC3339)
	b := &state.BatchState{
		SchemaVersion: state.CurrentSchemaVersion,
		BatchID:       uuid.NewString(),
		Features:      features,
		Status:        state.BatchRunning,
		CreatedAt:     now,
		UpdatedAt:     now,
		BatchFile:     sourceFile,
		BatchFileHash: sourceHash,
	}
	if err := o.Store.SaveBatch(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Resume reloads a batch and reconstructs the orchestrator position from
// its checkpoint when the checkpoint validates; otherwise the batch's own
// cursor is used. Features interrupted mid-flight are re-queued, and when
// the batch was paused by a systemic halt, failed features at and beyond
// the cursor are re-queued for another run.
func (o *Orchestrator) Resume(batchID string, force bool) (*state.BatchState, error) {
	b, err := o.Store.LoadBatch(batchID)
	if err != nil {
		return nil, err
	}

	if b.BatchFile != "" && !force {
		hash, err := batchfile.HashFile(b.BatchFile)
		if err != nil {
			return nil, fmt.Errorf("hash batch file: %w", err)
		}
		if b.BatchFileHash != "" && hash != b.BatchFileHash {
			return nil, fmt.Errorf("batch file %s changed since batch %s was created (use --resume-force)", b.BatchFile, batchID)
		}
	}

	res := o.Checkpoints.Resume(b)
	if res.FromCheckpoint {
		b.CurrentIndex = res.Index
		logging.Info(fmt.Sprintf("Resuming batch %s from checkpoint at feature %d", batchID, res.Index))
	} else {
		logging.Debug(fmt.Sprintf("Checkpoint not used: %s", res.Reason))
		logging.Info(fmt.Sprintf("Resuming batch %s from feature %d", batchID, b.CurrentIndex))
	}

	wasPaused := b.Status == state.BatchPaused
	for i := range b.Features {
		f := &b.Features[i]
		if f.Status == state.FeatureInProgress {
			f.Status = state.FeaturePending
		}
		if wasPaused && i >= b.CurrentIndex && f.Status == state.FeatureFailed {
			f.Status = state.FeaturePending
			if err := o.resetTrippedBreaker(b.BatchID, i); err != nil {
				return nil, fmt.Errorf("reset breaker for feature %d: %w", i, err)
			}
		}
	}

	b.Status = state.BatchRunning
	if err := o.Store.SaveBatch(b); err != nil {
		return nil, err
	}
	return b, nil
}

// resetTrippedBreaker closes a re-queued feature's persisted circuit
// breaker. An explicit --resume is the administrative reset: the operator
// has diagnosed the failure, so the open latch must not immediately
// re-pause the batch without a single new attempt.
func (o *Orchestrator) resetTrippedBreaker(batchID string, index int) error {
	mgr, err := loop.NewManager(o.Store, o.Policy, o.Config.BreakerThreshold, featureSessionID(batchID, index))
	if err != nil {
		return err
	}
	if !mgr.Breaker().IsOpen() {
		return nil
	}
	logging.Info(fmt.Sprintf("Resetting tripped circuit breaker for feature %d", index))
	return mgr.ResetBreaker()
}

// featureSessionID names the retry-loop session for one feature of a batch.
func featureSessionID(batchID string, index int) string {
	return fmt.Sprintf("%s-f%03d", batchID, index)
}

// Run processes the batch to a terminal state and returns an exit code.
func (o *Orchestrator) Run(ctx context.Context, b *state.BatchState) int {
	o.startTime = time.Now()

	for b.CurrentIndex < len(b.Features) {
		if ctx.Err() != nil {
			return o.interrupted(b)
		}

		if b.Features[b.CurrentIndex].Status != state.FeaturePending {
			b.CurrentIndex++
			if code := o.persist(b); code >= 0 {
				return code
			}
			continue
		}

		if code := o.processFeature(ctx, b, b.CurrentIndex); code >= 0 {
			return code
		}

		b.CurrentIndex++
		if code := o.persist(b); code >= 0 {
			return code
		}
		if err := o.Checkpoints.Write(b, nil); err != nil {
			logging.Warn(fmt.Sprintf("Failed to write checkpoint: %v", err))
		}
	}

	return o.finish(b)
}

// processFeature runs one feature's bounded retry loop. Returns -1 to
// continue with the next feature, or an exit code to stop the batch.
func (o *Orchestrator) processFeature(ctx context.Context, b *state.BatchState, index int) int {
	f := &b.Features[index]
	sessionID := featureSessionID(b.BatchID, index)

	mgr, err := loop.NewManager(o.Store, o.Policy, o.Config.BreakerThreshold, sessionID)
	if err != nil {
		var corrupted *state.CorruptedStateError
		if errors.As(err, &corrupted) {
			logging.Error(fmt.Sprintf("Loop state unreadable: %v", err))
			return exitcode.CorruptedState
		}
		logging.Error(fmt.Sprintf("Failed to open loop state: %v", err))
		return exitcode.Error
	}

	// Stage verification is per feature: the verifier's own retry budget
	// and breaker bound how often an incomplete pipeline loops back.
	var ver *verify.Verifier
	if o.Config.VerifyStages {
		ver = verify.New(o.Policy, o.Config.BreakerThreshold)
	}

	logging.Stage(fmt.Sprintf("Feature %d/%d: %s", index+1, len(b.Features), f.Description))

	for {
		if ctx.Err() != nil {
			return o.interrupted(b)
		}

		if ok, reason := mgr.ShouldRetry(); !ok {
			return o.haltFeature(b, index, mgr, reason)
		}

		f.Status = state.FeatureInProgress
		f.AttemptCount++
		if code := o.persist(b); code >= 0 {
			return code
		}

		res, err := o.Runner.Invoke(ctx, f.Description)
		if err != nil {
			if ctx.Err() != nil {
				return o.interrupted(b)
			}
			// Dispatch failure: classify like any other failure text.
			res = &agent.Result{Error: err.Error()}
		}

		if recErr := mgr.RecordAttempt(res.Success, res.Error, res.TokensUsed); recErr != nil {
			logging.Error(fmt.Sprintf("Failed to persist loop state: %v", recErr))
			return exitcode.Error
		}

		if res.Success {
			if ver != nil {
				dec := ver.Evaluate(sessionID, res.Stages)
				switch dec.Action {
				case verify.ActionLoopBack:
					if err := o.Store.SaveLoopBack(dec.LoopBack); err != nil {
						logging.Warn(fmt.Sprintf("Failed to save loop-back request: %v", err))
					}
					f.Status = state.FeaturePending
					if code := o.persist(b); code >= 0 {
						return code
					}
					logging.Warn(fmt.Sprintf("Feature %d pipeline incomplete (missing: %s), looping back",
						index, strings.Join(dec.Missing, ", ")))
					o.Sleep(ctx, dec.Delay)
					continue
				case verify.ActionGiveUp:
					f.Status = state.FeatureFailed
					f.LastError = fmt.Sprintf("pipeline incomplete: missing %s", strings.Join(dec.Missing, ", "))
					if code := o.persist(b); code >= 0 {
						return code
					}
					logging.Warn(fmt.Sprintf("Feature %d gave up after %d incomplete pipelines (%s)",
						index, ver.Attempts(), dec.Reason))
					_ = mgr.Discard()
					return -1
				}
				_ = o.Store.DeleteLoopBack(sessionID)
			}
			f.Status = state.FeatureCompleted
			f.LastError = ""
			if code := o.persist(b); code >= 0 {
				return code
			}
			logging.Success(fmt.Sprintf("Feature %d completed after %d attempt(s)", index, f.AttemptCount))
			o.closeIssue(f)
			_ = mgr.Discard()
			return -1
		}

		f.LastError = summarize(res.Error)
		class := o.Classifier.Classify(res.Error)
		logging.Warn(fmt.Sprintf("Feature %d attempt %d failed (%s): %s", index, f.AttemptCount, class, f.LastError))

		if class != classify.Transient {
			// Permanent or unknown: no retry. The batch proceeds; one
			// broken feature must never block the rest.
			f.Status = state.FeatureFailed
			if code := o.persist(b); code >= 0 {
				return code
			}
			o.labelIssue(f)
			_ = mgr.Discard()
			return -1
		}

		if mgr.Breaker().IsOpen() {
			return o.haltFeature(b, index, mgr, retry.ReasonCircuitOpen)
		}

		if f.AttemptCount >= o.Config.MaxRetriesPerFeature {
			f.Status = state.FeatureFailed
			f.LastError = fmt.Sprintf("per-feature retry cap (%d) reached: %s", o.Config.MaxRetriesPerFeature, f.LastError)
			if code := o.persist(b); code >= 0 {
				return code
			}
			_ = mgr.Discard()
			return -1
		}

		if b.GlobalRetryCount >= o.Config.GlobalRetryLimit {
			// The batch-wide retry budget is spent: a systemic condition,
			// surfaced to the caller rather than absorbed per feature.
			f.Status = state.FeatureFailed
			b.Status = state.BatchPaused
			if code := o.persist(b); code >= 0 {
				return code
			}
			logging.Error(fmt.Sprintf("Global retry limit (%d) reached at feature %d", o.Config.GlobalRetryLimit, index))
			o.notify(b, notification.EventResourceExhausted, exitcode.ResourceExhausted)
			return exitcode.ResourceExhausted
		}

		b.GlobalRetryCount++
		delay := mgr.NextDelay()
		b.RetryHistory = append(b.RetryHistory, state.RetryRecord{
			FeatureIndex: index,
			ReasonClass:  class.String(),
			Timestamp:    time.Now().Format(time.RFC3339),
			DelayMs:      delay.Milliseconds(),
		})
		f.Status = state.FeaturePending
		if code := o.persist(b); code >= 0 {
			return code
		}

		logging.Info(fmt.Sprintf("Retrying feature %d in %s (attempt %d/%d, global retries %d/%d)",
			index, delay, f.AttemptCount+1, o.Config.MaxRetriesPerFeature, b.GlobalRetryCount, o.Config.GlobalRetryLimit))
		o.Sleep(ctx, delay)
	}
}

// haltFeature handles a blocked retry decision. Iteration-cap exhaustion is
// per-unit: the feature fails and the batch continues. Circuit-breaker and
// token-budget trips are systemic: the batch pauses and the code is
// surfaced.
func (o *Orchestrator) haltFeature(b *state.BatchState, index int, mgr *loop.Manager, reason retry.Reason) int {
	f := &b.Features[index]
	f.Status = state.FeatureFailed
	f.LastError = (&retry.ResourceExhaustedError{Reason: reason}).Error()

	switch reason {
	case retry.ReasonCircuitOpen:
		b.Status = state.BatchPaused
		if code := o.persist(b); code >= 0 {
			return code
		}
		if err := o.Checkpoints.Write(b, mgr.State()); err != nil {
			logging.Warn(fmt.Sprintf("Failed to write checkpoint: %v", err))
		}
		banner.PrintCircuitOpenBanner(index, f.Description, mgr.Breaker().ConsecutiveFailures())
		o.notify(b, notification.EventCircuitOpen, exitcode.CircuitOpen)
		return exitcode.CircuitOpen

	case retry.ReasonTokenBudget:
		b.Status = state.BatchPaused
		if code := o.persist(b); code >= 0 {
			return code
		}
		logging.Error(fmt.Sprintf("Token budget exceeded at feature %d (%d tokens used)", index, mgr.State().TokensUsed))
		o.notify(b, notification.EventResourceExhausted, exitcode.ResourceExhausted)
		return exitcode.ResourceExhausted

	default:
		// Iteration cap: halt retries for this unit only.
		if code := o.persist(b); code >= 0 {
			return code
		}
		logging.Warn(fmt.Sprintf("Feature %d halted: %s", index, reason))
		_ = mgr.Discard()
		return -1
	}
}

// finish marks the batch completed, prints the summary, and clears the
// checkpoint.
func (o *Orchestrator) finish(b *state.BatchState) int {
	b.Status = state.BatchCompleted
	if code := o.persist(b); code >= 0 {
		return code
	}
	if err := o.Checkpoints.Clear(b.BatchID); err != nil {
		logging.Warn(fmt.Sprintf("Failed to clear checkpoint: %v", err))
	}

	duration := int(time.Since(o.startTime).Seconds())
	banner.PrintSummaryBanner(b, duration)

	failed := 0
	for _, f := range b.Features {
		if f.Status == state.FeatureFailed {
			failed++
		}
	}
	if failed > 0 {
		o.notify(b, notification.EventBatchFailed, exitcode.BatchFailed)
		return exitcode.BatchFailed
	}
	o.notify(b, notification.EventCompleted, exitcode.Success)
	return exitcode.Success
}

// interrupted persists the current position and a checkpoint before
// exiting on SIGINT/SIGTERM.
func (o *Orchestrator) interrupted(b *state.BatchState) int {
	b.Status = state.BatchPaused
	b.UpdatedAt = time.Now().Format(time.RFC3339)
	if err := o.Store.SaveBatch(b); err != nil {
		logging.Error(fmt.Sprintf("Failed to save interrupted state: %v", err))
	}
	if err := o.Checkpoints.Write(b, nil); err != nil {
		logging.Warn(fmt.Sprintf("Failed to write checkpoint: %v", err))
	}
	banner.PrintInterruptedBanner(b.BatchID, b.CurrentIndex, len(b.Features))
	o.notify(b, notification.EventInterrupted, exitcode.Interrupted)
	return exitcode.Interrupted
}

// persist saves the batch state, returning an exit code on failure.
// State-persistence errors are always fatal: partial progress must not be
// lost silently.
func (o *Orchestrator) persist(b *state.BatchState) int {
	b.UpdatedAt = time.Now().Format(time.RFC3339)
	if err := o.Store.SaveBatch(b); err != nil {
		logging.Error(fmt.Sprintf("Failed to save batch state: %v", err))
		return exitcode.Error
	}
	return -1
}

func (o *Orchestrator) closeIssue(f *state.Feature) {
	if o.Issues == nil || f.IssueNumber <= 0 {
		return
	}
	if err := o.Issues.Close(f.IssueNumber, "Implemented by batch-loop."); err != nil {
		logging.Warn(fmt.Sprintf("Failed to close issue #%d: %v", f.IssueNumber, err))
	}
}

func (o *Orchestrator) labelIssue(f *state.Feature) {
	if o.Issues == nil || f.IssueNumber <= 0 {
		return
	}
	if err := o.Issues.Label(f.IssueNumber, "blocked"); err != nil {
		logging.Warn(fmt.Sprintf("Failed to label issue #%d: %v", f.IssueNumber, err))
	}
}

// notify sends a fire-and-forget notification for the given outcome.
func (o *Orchestrator) notify(b *state.BatchState, kind string, code int) {
	projectName := "batch-loop"
	if b.BatchFile != "" {
		projectName = filepath.Base(filepath.Dir(b.BatchFile))
		if projectName == "." || projectName == "" {
			projectName = "batch-loop"
		}
	}
	completed, failed := 0, 0
	for _, f := range b.Features {
		switch f.Status {
		case state.FeatureCompleted:
			completed++
		case state.FeatureFailed:
			failed++
		}
	}
	sender := notification.Sender{
		Webhook: o.Config.NotifyWebhook,
		Channel: o.Config.NotifyChannel,
		ChatID:  o.Config.NotifyChatID,
	}
	sender.Send(notification.Event{
		Kind:      kind,
		Project:   projectName,
		BatchID:   b.BatchID,
		Completed: completed,
		Failed:    failed,
		ExitCode:  code,
	})
}

// sleepWithContext waits for d or until ctx is canceled.
func sleepWithContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// summarize compresses multi-line error output into one bounded line.
func summarize(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	const maxLen = 300
	if len(text) > maxLen {
		text = text[:maxLen] + "..."
	}
	return text
}
