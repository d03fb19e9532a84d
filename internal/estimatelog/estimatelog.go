// Package estimatelog persists the append-only quarterly and annual estimate logs as CSV.
package estimatelog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"estimate-revision-model/internal/types"
)

// Store maps each period to its log file
type Store struct {
	paths map[types.Period]string
}

// New creates a store backed by the two log files
func New(quarterlyPath, annualPath string) *Store {
	return &Store{paths: map[types.Period]string{
		types.PeriodQuarterly: quarterlyPath,
		types.PeriodAnnual:    annualPath,
	}}
}

// Path returns the log file for period
func (s *Store) Path(period types.Period) string {
	return s.paths[period]
}

// Load reads the log for period. A missing file is an empty log.
func (s *Store) Load(period types.Period) ([]types.EstimateSnapshot, error) {
	path, ok := s.paths[period]
	if !ok {
		return nil, fmt.Errorf("no estimate log configured for period %q", period)
	}
	return Load(path)
}

// Save rewrites the log for period
func (s *Store) Save(period types.Period, rows []types.EstimateSnapshot) error {
	path, ok := s.paths[period]
	if !ok {
		return fmt.Errorf("no estimate log configured for period %q", period)
	}
	return Save(path, rows)
}

// Load reads an estimate log file. Missing or empty files yield no rows.
func Load(path string) ([]types.EstimateSnapshot, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open estimate log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat estimate log: %w", err)
	}
	if info.Size() == 0 {
		return nil, nil
	}

	var rows []*types.EstimateSnapshot
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse estimate log %s: %w", path, err)
	}

	out := make([]types.EstimateSnapshot, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	return out, nil
}

// Save writes rows to a temp file next to path and renames it into place,
// so readers never observe a partially written log.
func Save(path string, rows []types.EstimateSnapshot) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp log: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	ptrs := make([]*types.EstimateSnapshot, len(rows))
	for i := range rows {
		ptrs[i] = &rows[i]
	}
	if err := gocsv.Marshal(ptrs, tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write estimate log: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync estimate log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close estimate log: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace estimate log: %w", err)
	}
	return nil
}
