// Package checkpoint snapshots the orchestrator's position before a
// context-destroying event and rebuilds it afterward.
//
// A checkpoint is an optimization over the per-step batch state: it adds
// the in-flight loop state on top of the cursor. BatchState stays the
// source of truth, so a stale or mismatched checkpoint is refused and the
// caller falls back to BatchState.CurrentIndex.
package checkpoint

import (
	"fmt"
	"time"

	"github.com/CodexForgeBR/batch-loop/internal/state"
)

// Coordinator writes and validates checkpoints through a state store.
type Coordinator struct {
	store *state.Store
}

// NewCoordinator returns a Coordinator backed by the given store.
func NewCoordinator(store *state.Store) *Coordinator {
	return &Coordinator{store: store}
}

// Write persists a checkpoint for the batch's current position as one
// atomic document.
func (c *Coordinator) Write(b *state.BatchState, loopState *state.LoopState) error {
	cp := &state.Checkpoint{
		BatchID:      b.BatchID,
		CurrentIndex: b.CurrentIndex,
		LoopState:    loopState,
		CreatedAt:    time.Now().Format(time.RFC3339),
	}
	return c.store.SaveCheckpoint(cp)
}

// Resumed is the reconstructed orchestrator position.
type Resumed struct {
	// Index is where processing continues.
	Index int

	// LoopState is the in-flight loop state from the checkpoint, nil when
	// the checkpoint was refused or carried none.
	LoopState *state.LoopState

	// FromCheckpoint reports whether the checkpoint was used. When false,
	// Reason says why it was refused and Index comes from BatchState.
	FromCheckpoint bool
	Reason         string
}

// Resume reconstructs the orchestrator position for b. A missing or
// invalid checkpoint is not an error: the batch state's own cursor is the
// fallback.
func (c *Coordinator) Resume(b *state.BatchState) Resumed {
	fallback := Resumed{Index: b.CurrentIndex}

	cp, err := c.store.LoadCheckpoint(b.BatchID)
	if err != nil {
		fallback.Reason = fmt.Sprintf("checkpoint unavailable: %v", err)
		return fallback
	}
	if err := Validate(cp, b); err != nil {
		fallback.Reason = err.Error()
		return fallback
	}
	return Resumed{
		Index:          cp.CurrentIndex,
		LoopState:      cp.LoopState,
		FromCheckpoint: true,
	}
}

// Validate checks a checkpoint against the authoritative batch state:
// matching batch id and a cursor within bounds.
func Validate(cp *state.Checkpoint, b *state.BatchState) error {
	if cp.BatchID != b.BatchID {
		return fmt.Errorf("checkpoint batch id %q does not match batch %q", cp.BatchID, b.BatchID)
	}
	if cp.CurrentIndex < 0 || cp.CurrentIndex > len(b.Features) {
		return fmt.Errorf("checkpoint index %d out of range [0,%d]", cp.CurrentIndex, len(b.Features))
	}
	return nil
}

// Clear removes the checkpoint for a batch id.
func (c *Coordinator) Clear(batchID string) error {
	return c.store.DeleteCheckpoint(batchID)
}
