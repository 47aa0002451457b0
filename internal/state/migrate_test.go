package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpgradeBatchFromV1(t *testing.T) {
	// v1 documents carry "retries" and have no schema_version or
	// global_retry_count.
	raw := map[string]any{
		"batch_id": "legacy",
		"features": []any{
			map[string]any{"description": "old feature", "status": "pending"},
		},
		"current_index": float64(0),
		"status":        "paused",
		"retries": []any{
			map[string]any{"feature_index": float64(0), "reason_class": "transient", "timestamp": "2025-01-01T00:00:00Z", "delay_ms": float64(100)},
		},
	}

	b, err := UpgradeBatch(raw)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, b.SchemaVersion)
	assert.Equal(t, "legacy", b.BatchID)
	assert.Equal(t, 0, b.GlobalRetryCount)
	require.Len(t, b.RetryHistory, 1)
	assert.Equal(t, "transient", b.RetryHistory[0].ReasonClass)
	assert.Equal(t, int64(100), b.RetryHistory[0].DelayMs)
}

func TestUpgradeBatchCurrentVersionUnchanged(t *testing.T) {
	raw := map[string]any{
		"schema_version": float64(2),
		"batch_id":       "current",
		"features": []any{
			map[string]any{"description": "f", "status": "completed"},
		},
		"current_index":      float64(1),
		"status":             "completed",
		"global_retry_count": float64(3),
		"retry_history":      []any{},
	}

	b, err := UpgradeBatch(raw)
	require.NoError(t, err)
	assert.Equal(t, 3, b.GlobalRetryCount)
	assert.Equal(t, 1, b.CurrentIndex)
}

func TestUpgradeBatchRejectsNewerSchema(t *testing.T) {
	raw := map[string]any{
		"schema_version": float64(99),
		"batch_id":       "future",
	}
	_, err := UpgradeBatch(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported batch schema version 99")
}

func TestUpgradeBatchRejectsOutOfRangeIndex(t *testing.T) {
	tests := []struct {
		name  string
		index float64
	}{
		{"negative", -1},
		{"beyond features", 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := map[string]any{
				"schema_version": float64(2),
				"batch_id":       "bad-index",
				"features": []any{
					map[string]any{"description": "only one", "status": "pending"},
				},
				"current_index": tt.index,
				"status":        "running",
			}
			_, err := UpgradeBatch(raw)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "out of range")
		})
	}
}

func TestUpgradeBatchIndexAtBoundary(t *testing.T) {
	// current_index == len(features) is valid: the batch finished.
	raw := map[string]any{
		"schema_version": float64(2),
		"batch_id":       "done",
		"features": []any{
			map[string]any{"description": "f", "status": "completed"},
		},
		"current_index": float64(1),
		"status":        "completed",
	}
	b, err := UpgradeBatch(raw)
	require.NoError(t, err)
	assert.Equal(t, 1, b.CurrentIndex)
}

func TestUpgradeLoopFromV1(t *testing.T) {
	raw := map[string]any{
		"session_id":           "legacy-loop",
		"iterations":           float64(4),
		"consecutive_failures": float64(2),
	}

	l, err := UpgradeLoop(raw)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, l.SchemaVersion)
	assert.Equal(t, 4, l.IterationCount)
	assert.Equal(t, 2, l.ConsecutiveFailures)
}

func TestUpgradeLoopRejectsNewerSchema(t *testing.T) {
	raw := map[string]any{
		"schema_version": float64(3),
		"session_id":     "future-loop",
	}
	_, err := UpgradeLoop(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported loop schema version 3")
}

func TestMissingSchemaVersionTreatedAsV1(t *testing.T) {
	raw := map[string]any{
		"session_id": "no-version",
		"iterations": float64(1),
	}
	l, err := UpgradeLoop(raw)
	require.NoError(t, err)
	assert.Equal(t, 1, l.IterationCount)
}
