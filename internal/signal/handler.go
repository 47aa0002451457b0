// Package signal provides signal handling for graceful shutdown of the
// batch-loop CLI.
//
// An external kill is treated as a crash by the state design; the handler
// only exists to turn SIGINT/SIGTERM into a context cancellation so the
// orchestrator can persist a final checkpoint before exiting.
package signal

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalHandler registers SIGINT and SIGTERM handlers. When a signal
// is received, the onInterrupt callback runs (if non-nil), then the context
// is canceled. The listening goroutine exits when either a signal arrives
// or ctx is canceled.
func SetupSignalHandler(ctx context.Context, cancel context.CancelFunc, onInterrupt func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			if onInterrupt != nil {
				onInterrupt()
			}
			cancel()
		case <-ctx.Done():
			return
		}
	}()
}
