// Package exitcode defines named exit codes for the batch-loop CLI.
//
// Each code maps a specific termination condition to a numeric value
// recognized by shell scripts and CI pipelines.
package exitcode

// Exit code constants matching the batch-loop data model.
const (
	Success           = 0   // All features processed and batch completed
	Error             = 1   // Invalid args, file not found, misconfiguration
	CircuitOpen       = 2   // Circuit breaker tripped, batch paused
	ResourceExhausted = 3   // Retry ceiling or token budget exceeded
	CorruptedState    = 4   // State file unreadable and no usable backup
	BatchFailed       = 5   // Batch finished with one or more failed features
	Interrupted       = 130 // SIGINT/SIGTERM received
)

// Name returns the human-readable name for the given exit code.
// Unknown codes return "unknown".
func Name(code int) string {
	switch code {
	case Success:
		return "Success"
	case Error:
		return "Error"
	case CircuitOpen:
		return "CircuitOpen"
	case ResourceExhausted:
		return "ResourceExhausted"
	case CorruptedState:
		return "CorruptedState"
	case BatchFailed:
		return "BatchFailed"
	case Interrupted:
		return "Interrupted"
	default:
		return "unknown"
	}
}
