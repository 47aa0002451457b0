package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const backupSuffix = ".bak"

// Store reads and writes state documents under a single state directory.
// One file per batch/loop/checkpoint id; all files owner-only (0600).
type Store struct {
	Dir string
}

// NewStore returns a Store rooted at dir. Call Init before the first save.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// Init creates the state directory with owner-only permissions.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.Dir, 0700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	return nil
}

// ValidateID rejects identifiers that could escape the state directory.
// Ids become filename fragments, so path separators, parent references,
// and absolute paths are all refused before any path is constructed.
func ValidateID(id string) error {
	if id == "" {
		return &SecurityViolationError{ID: id, Reason: "empty identifier"}
	}
	if filepath.IsAbs(id) {
		return &SecurityViolationError{ID: id, Reason: "absolute path"}
	}
	if strings.ContainsAny(id, `/\`) {
		return &SecurityViolationError{ID: id, Reason: "path separator"}
	}
	if id == "." || strings.Contains(id, "..") {
		return &SecurityViolationError{ID: id, Reason: "parent directory reference"}
	}
	return nil
}

// BatchPath returns the file path for a batch id. The id must already be
// validated.
func (s *Store) BatchPath(id string) string {
	return filepath.Join(s.Dir, "batch-"+id+".json")
}

// LoopPath returns the file path for a loop session id.
func (s *Store) LoopPath(id string) string {
	return filepath.Join(s.Dir, "loop-"+id+".json")
}

// CheckpointPath returns the file path for a batch's checkpoint.
func (s *Store) CheckpointPath(id string) string {
	return filepath.Join(s.Dir, "checkpoint-"+id+".json")
}

// SaveBatch persists a batch state atomically, preserving the previous
// document as a sibling backup first.
func (s *Store) SaveBatch(b *BatchState) error {
	if err := ValidateID(b.BatchID); err != nil {
		return err
	}
	b.SchemaVersion = CurrentSchemaVersion
	return s.saveDocument(s.BatchPath(b.BatchID), b)
}

// LoadBatch reads and migrates a batch state. Returns ErrNotFound if no
// file exists, or *CorruptedStateError if the file and its backup are both
// unreadable.
func (s *Store) LoadBatch(id string) (*BatchState, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	raw, err := s.readDocument(s.BatchPath(id))
	if err != nil {
		return nil, err
	}
	return UpgradeBatch(raw)
}

// DeleteBatch removes a batch's state file and backup. Missing files are
// not an error.
func (s *Store) DeleteBatch(id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	return removeWithBackup(s.BatchPath(id))
}

// SaveLoop persists a loop state atomically with a sibling backup.
func (s *Store) SaveLoop(l *LoopState) error {
	if err := ValidateID(l.SessionID); err != nil {
		return err
	}
	l.SchemaVersion = CurrentSchemaVersion
	return s.saveDocument(s.LoopPath(l.SessionID), l)
}

// LoadLoop reads and migrates a loop state.
func (s *Store) LoadLoop(id string) (*LoopState, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	raw, err := s.readDocument(s.LoopPath(id))
	if err != nil {
		return nil, err
	}
	return UpgradeLoop(raw)
}

// DeleteLoop removes a loop's state file and backup.
func (s *Store) DeleteLoop(id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	return removeWithBackup(s.LoopPath(id))
}

// DeleteBatchLoops removes every loop state file created for a batch's
// features (session ids are prefixed with the batch id).
func (s *Store) DeleteBatchLoops(batchID string) error {
	if err := ValidateID(batchID); err != nil {
		return err
	}
	for _, pattern := range []string{"loop-" + batchID + "-*.json", "loop-" + batchID + "-*.json" + backupSuffix} {
		matches, err := filepath.Glob(filepath.Join(s.Dir, pattern))
		if err != nil {
			return fmt.Errorf("glob loop files: %w", err)
		}
		for _, m := range matches {
			if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("remove loop file: %w", err)
			}
		}
	}
	return nil
}

// SaveCheckpoint persists a checkpoint atomically. Checkpoints are
// disposable snapshots, so no backup is kept.
func (s *Store) SaveCheckpoint(c *Checkpoint) error {
	if err := ValidateID(c.BatchID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	return writeFileAtomic(s.CheckpointPath(c.BatchID), data, 0600)
}

// LoadCheckpoint reads a checkpoint for the given batch id.
func (s *Store) LoadCheckpoint(id string) (*Checkpoint, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	raw, err := s.readDocument(s.CheckpointPath(id))
	if err != nil {
		return nil, err
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("remarshal checkpoint: %w", err)
	}
	var c Checkpoint
	if err := json.Unmarshal(buf, &c); err != nil {
		return nil, &CorruptedStateError{Path: s.CheckpointPath(id), Err: err}
	}
	return &c, nil
}

// DeleteCheckpoint removes a batch's checkpoint file.
func (s *Store) DeleteCheckpoint(id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	return removeWithBackup(s.CheckpointPath(id))
}

// LoopBackPath returns the file path for a session's loop-back request.
func (s *Store) LoopBackPath(id string) string {
	return filepath.Join(s.Dir, "loopback-"+id+".json")
}

// SaveLoopBack persists a loop-back request atomically.
func (s *Store) SaveLoopBack(lb *LoopBack) error {
	if err := ValidateID(lb.SessionID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(lb, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal loop-back: %w", err)
	}
	return writeFileAtomic(s.LoopBackPath(lb.SessionID), data, 0600)
}

// LoadLoopBack reads a session's loop-back request.
func (s *Store) LoadLoopBack(id string) (*LoopBack, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	raw, err := s.readDocument(s.LoopBackPath(id))
	if err != nil {
		return nil, err
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("remarshal loop-back: %w", err)
	}
	var lb LoopBack
	if err := json.Unmarshal(buf, &lb); err != nil {
		return nil, &CorruptedStateError{Path: s.LoopBackPath(id), Err: err}
	}
	return &lb, nil
}

// DeleteLoopBack removes a session's loop-back request. Missing files are
// not an error.
func (s *Store) DeleteLoopBack(id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	return removeWithBackup(s.LoopBackPath(id))
}

// saveDocument marshals v as indented JSON and writes it atomically,
// keeping the previous valid document as path+".bak".
func (s *Store) saveDocument(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if prev, err := os.ReadFile(path); err == nil && json.Valid(prev) {
		if err := writeFileAtomic(path+backupSuffix, prev, 0600); err != nil {
			return fmt.Errorf("write backup: %w", err)
		}
	}
	return writeFileAtomic(path, data, 0600)
}

// readDocument reads a state file into a generic map, falling back to the
// sibling backup when the primary document is not valid JSON.
func (s *Store) readDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var raw map[string]any
	primaryErr := json.Unmarshal(data, &raw)
	if primaryErr == nil {
		return raw, nil
	}

	backup, berr := os.ReadFile(path + backupSuffix)
	if berr == nil {
		var rawBackup map[string]any
		if json.Unmarshal(backup, &rawBackup) == nil {
			return rawBackup, nil
		}
	}

	return nil, &CorruptedStateError{Path: path, Err: primaryErr}
}

func removeWithBackup(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove state file: %w", err)
	}
	if err := os.Remove(path + backupSuffix); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove backup file: %w", err)
	}
	return nil
}
