package retry

import "fmt"

// ResourceExhaustedError reports that retries are halted for one unit of
// work: the iteration cap, circuit breaker, or token budget tripped. It
// affects only that unit, never the whole batch.
type ResourceExhaustedError struct {
	Reason Reason
	Detail string
}

func (e *ResourceExhaustedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("retries exhausted: %s", e.Reason)
	}
	return fmt.Sprintf("retries exhausted: %s (%s)", e.Reason, e.Detail)
}
