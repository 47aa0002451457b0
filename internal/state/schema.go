// Package state defines the persisted batch-loop state documents and the
// file store that reads and writes them.
//
// Each batch, loop, and checkpoint is one JSON document in one file under
// the state directory. Writes are atomic (temp file plus rename), so a
// reader never observes a partially written document. Two processes writing
// the same id race at the filesystem level and the later rename wins; that
// last-writer-wins policy is deliberate for the single-operator usage model.
package state

// CurrentSchemaVersion is the schema version written by this build.
// Older documents are migrated by Upgrade on load.
const CurrentSchemaVersion = 2

// FeatureStatus is the lifecycle status of a single feature in a batch.
type FeatureStatus string

const (
	FeaturePending    FeatureStatus = "pending"
	FeatureInProgress FeatureStatus = "in_progress"
	FeatureCompleted  FeatureStatus = "completed"
	FeatureFailed     FeatureStatus = "failed"
	FeatureSkipped    FeatureStatus = "skipped"
)

// BatchStatus is the overall status of a batch run.
type BatchStatus string

const (
	BatchRunning   BatchStatus = "running"
	BatchPaused    BatchStatus = "paused"
	BatchCompleted BatchStatus = "completed"
	BatchFailed    BatchStatus = "failed"
)

// Feature is one feature-implementation task in a batch queue.
type Feature struct {
	Description  string        `json:"description"`
	Status       FeatureStatus `json:"status"`
	AttemptCount int           `json:"attempt_count"`
	IssueNumber  int           `json:"issue_number,omitempty"`
	DependsOn    []string      `json:"depends_on,omitempty"`
	LastError    string        `json:"last_error,omitempty"`
}

// RetryRecord is one entry in a batch's append-only retry log.
type RetryRecord struct {
	FeatureIndex int    `json:"feature_index"`
	ReasonClass  string `json:"reason_class"`
	Timestamp    string `json:"timestamp"`
	DelayMs      int64  `json:"delay_ms"`
}

// BatchState is the persisted state of one batch run.
// Written to <state-dir>/batch-<batch_id>.json.
//
// Invariant: 0 <= CurrentIndex <= len(Features). A feature moves
// pending -> in_progress -> {completed | failed | skipped} and never
// regresses except when resume logic re-queues a failed feature as pending.
type BatchState struct {
	SchemaVersion    int           `json:"schema_version"`
	BatchID          string        `json:"batch_id"`
	Features         []Feature     `json:"features"`
	CurrentIndex     int           `json:"current_index"`
	Status           BatchStatus   `json:"status"`
	CreatedAt        string        `json:"created_at"`
	UpdatedAt        string        `json:"updated_at"`
	BatchFile        string        `json:"batch_file,omitempty"`
	BatchFileHash    string        `json:"batch_file_hash,omitempty"`
	GlobalRetryCount int           `json:"global_retry_count"`
	RetryHistory     []RetryRecord `json:"retry_history"`
}

// LoopAttempt is one entry in a loop's retry history.
type LoopAttempt struct {
	Iteration    int    `json:"iteration"`
	Success      bool   `json:"success"`
	ErrorSummary string `json:"error_summary,omitempty"`
	Timestamp    string `json:"timestamp"`
}

// LoopState is the persisted state of one bounded retry loop for a single
// unit of agent work. Written to <state-dir>/loop-<session_id>.json.
//
// CircuitBreakerOpen is derived from ConsecutiveFailures but persisted for
// fast checks; once true it stays true until an explicit reset.
type LoopState struct {
	SchemaVersion       int           `json:"schema_version"`
	SessionID           string        `json:"session_id"`
	IterationCount      int           `json:"iteration_count"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	CircuitBreakerOpen  bool          `json:"circuit_breaker_open"`
	TokensUsed          int64         `json:"tokens_used"`
	RetryHistory        []LoopAttempt `json:"retry_history"`
}

// Checkpoint snapshots the orchestrator's position so an external restart
// can rebuild it. Written to <state-dir>/checkpoint-<batch_id>.json.
// The checkpoint is an optimization; BatchState remains the source of truth.
type Checkpoint struct {
	BatchID      string     `json:"batch_id"`
	CurrentIndex int        `json:"current_index"`
	LoopState    *LoopState `json:"ralph_loop_state,omitempty"`
	CreatedAt    string     `json:"created_at"`
}

// LoopBack records a retry of pipeline stages a completion check found
// missing. Written to <state-dir>/loopback-<session_id>.json on every
// loop-back, removed once the pipeline completes, and left in place on
// give-up as a diagnostic trail.
type LoopBack struct {
	SessionID string   `json:"session_id"`
	Missing   []string `json:"missing"`
	Attempt   int      `json:"attempt"`
	CreatedAt string   `json:"created_at"`
}
