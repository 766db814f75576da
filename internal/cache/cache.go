// Package cache holds the snapshot hand-off between a calculation run and the
// summary run that follows it, plus a small LRU used while decoding.
package cache

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"capprices/internal/core"
)

// DefaultFileName is the snapshot file name inside the output folder.
const DefaultFileName = "cache.gob"

// Store reads and writes one snapshot file.
type Store struct {
	path            string
	deleteAfterLoad bool
}

// NewStore returns a Store for path. When deleteAfterLoad is set, a
// successful Load removes the file so the same report is never shown twice.
func NewStore(path string, deleteAfterLoad bool) *Store {
	return &Store{path: path, deleteAfterLoad: deleteAfterLoad}
}

func (s *Store) Path() string {
	return s.path
}

// Save writes the snapshot to a temporary file and renames it over the
// store path, so readers see either the old file or the whole new one.
func (s *Store) Save(snap core.Snapshot) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := gob.NewEncoder(tmp).Encode(snap); err != nil {
		tmp.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temporary cache file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}

// Load reads the snapshot back. An absent or undecodable file yields an
// error matching core.ErrMissingCache. gob drops empty slices, so Load
// restores them: every slice of the returned snapshot is non-nil.
func (s *Store) Load() (core.Snapshot, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return core.Snapshot{}, fmt.Errorf("%w: %s not found", core.ErrMissingCache, s.path)
	}
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("open cache: %w", err)
	}

	var snap core.Snapshot
	decodeErr := gob.NewDecoder(f).Decode(&snap)
	f.Close()
	if decodeErr != nil {
		return core.Snapshot{}, fmt.Errorf("%w: decode %s: %v", core.ErrMissingCache, s.path, decodeErr)
	}
	normalize(&snap)

	if s.deleteAfterLoad {
		if err := s.Delete(); err != nil {
			return snap, err
		}
	}
	return snap, nil
}

func normalize(snap *core.Snapshot) {
	if snap.Monthly == nil {
		snap.Monthly = core.MonthlyStats{}
	}
	for i := range snap.Monthly {
		if snap.Monthly[i].Months == nil {
			snap.Monthly[i].Months = []core.MonthStat{}
		}
	}
	if snap.Current == nil {
		snap.Current = core.CurrentPeriodValues{}
	}
	for i := range snap.Current {
		if snap.Current[i].Days == nil {
			snap.Current[i].Days = []core.DayValue{}
		}
	}
}

// Delete removes the snapshot file; a missing file is not an error.
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete cache: %w", err)
	}
	return nil
}
