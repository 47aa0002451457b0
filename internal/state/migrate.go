package state

import (
	"encoding/json"
	"fmt"
)

// Schema history:
//
//	v1: retry log stored under "retries", no global_retry_count, loop
//	    iteration counter stored under "iterations".
//	v2: current layout (schema.go).
//
// Upgrade functions accept the raw decoded document, rewrite legacy keys,
// and decode into the current struct. Migration happens exactly once, on
// load, so business logic never sees optional keys.

// UpgradeBatch migrates a raw batch document to the current schema.
func UpgradeBatch(raw map[string]any) (*BatchState, error) {
	version := schemaVersion(raw)
	if version > CurrentSchemaVersion {
		return nil, fmt.Errorf("unsupported batch schema version %d (this build supports up to %d)", version, CurrentSchemaVersion)
	}
	if version < 2 {
		if _, ok := raw["retry_history"]; !ok {
			if legacy, ok := raw["retries"]; ok {
				raw["retry_history"] = legacy
				delete(raw, "retries")
			}
		}
		if _, ok := raw["global_retry_count"]; !ok {
			raw["global_retry_count"] = 0
		}
	}
	raw["schema_version"] = CurrentSchemaVersion

	var b BatchState
	if err := redecode(raw, &b); err != nil {
		return nil, fmt.Errorf("decode batch state: %w", err)
	}
	if b.CurrentIndex < 0 || b.CurrentIndex > len(b.Features) {
		return nil, fmt.Errorf("batch %s: current_index %d out of range [0,%d]", b.BatchID, b.CurrentIndex, len(b.Features))
	}
	return &b, nil
}

// UpgradeLoop migrates a raw loop document to the current schema.
func UpgradeLoop(raw map[string]any) (*LoopState, error) {
	version := schemaVersion(raw)
	if version > CurrentSchemaVersion {
		return nil, fmt.Errorf("unsupported loop schema version %d (this build supports up to %d)", version, CurrentSchemaVersion)
	}
	if version < 2 {
		if _, ok := raw["iteration_count"]; !ok {
			if legacy, ok := raw["iterations"]; ok {
				raw["iteration_count"] = legacy
				delete(raw, "iterations")
			}
		}
	}
	raw["schema_version"] = CurrentSchemaVersion

	var l LoopState
	if err := redecode(raw, &l); err != nil {
		return nil, fmt.Errorf("decode loop state: %w", err)
	}
	return &l, nil
}

func schemaVersion(raw map[string]any) int {
	v, ok := raw["schema_version"]
	if !ok {
		return 1
	}
	// JSON numbers decode as float64.
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return 1
}

func redecode(raw map[string]any, out any) error {
	buf, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(buf, out)
}
