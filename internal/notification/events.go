// Package notification pushes terminal batch outcomes to an external
// messaging channel. Delivery is best-effort: a batch never blocks or
// fails because a notification could not be sent.
package notification

import "fmt"

// Event kinds matching terminal batch outcomes.
const (
	EventCompleted         = "completed"
	EventBatchFailed       = "batch_failed"
	EventCircuitOpen       = "circuit_open"
	EventResourceExhausted = "resource_exhausted"
	EventInterrupted       = "interrupted"
)

// Event describes how a batch run ended.
type Event struct {
	Kind      string
	Project   string
	BatchID   string
	Completed int
	Failed    int
	ExitCode  int
}

// Message renders the human-readable notification text for the event.
func (e Event) Message() string {
	switch e.Kind {
	case EventCompleted:
		return fmt.Sprintf("✅ %s [%s] batch completed: %d done, %d failed (exit %d)", e.Project, e.BatchID, e.Completed, e.Failed, e.ExitCode)
	case EventBatchFailed:
		return fmt.Sprintf("❌ %s [%s] batch finished with failures: %d done, %d failed (exit %d)", e.Project, e.BatchID, e.Completed, e.Failed, e.ExitCode)
	case EventCircuitOpen:
		return fmt.Sprintf("🚨 %s [%s] circuit breaker open, batch paused. Use --resume after diagnosing (exit %d)", e.Project, e.BatchID, e.ExitCode)
	case EventResourceExhausted:
		return fmt.Sprintf("🚫 %s [%s] retry budget exhausted, batch paused (exit %d)", e.Project, e.BatchID, e.ExitCode)
	case EventInterrupted:
		return fmt.Sprintf("⏸️ %s [%s] interrupted at %d done. Use --resume %s (exit %d)", e.Project, e.BatchID, e.Completed, e.BatchID, e.ExitCode)
	default:
		return fmt.Sprintf("ℹ️ %s [%s] event: %s (exit %d)", e.Project, e.BatchID, e.Kind, e.ExitCode)
	}
}
