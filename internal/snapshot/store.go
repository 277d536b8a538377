package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wonny/sas/internal/contracts"
)

// ErrInvalidAnalyzer is returned for analyzer ids that cannot be used as a file name
var ErrInvalidAnalyzer = errors.New("invalid analyzer id for snapshot")

// Store keeps one JSON file per analyzer under a debug directory
// ⭐ SSOT: 디버그 스냅샷 경로 규칙 (<dir>/<analyzer>.json)
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the root directory
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the snapshot file for analyzer
func (s *Store) Path(analyzer string) (string, error) {
	if analyzer == "" || analyzer == "." || analyzer == ".." || strings.ContainsAny(analyzer, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAnalyzer, analyzer)
	}
	return filepath.Join(s.dir, analyzer+".json"), nil
}

// Load reads the snapshot of analyzer. A missing file is returned as an error
// wrapping os.ErrNotExist.
func (s *Store) Load(analyzer string) ([]contracts.AnalysisResult, error) {
	path, err := s.Path(analyzer)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var results []contracts.AnalysisResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}

	return results, nil
}

// Save writes the snapshot of analyzer, replacing any previous file
func (s *Store) Save(analyzer string, results []contracts.AnalysisResult) error {
	path, err := s.Path(analyzer)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	if results == nil {
		results = []contracts.AnalysisResult{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	// 부분 쓰기를 남기지 않도록 임시 파일 후 rename
	tmp, err := os.CreateTemp(s.dir, analyzer+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}

	return nil
}

// Prune removes snapshot files last modified before cutoff and returns how many
// were removed. A missing directory prunes nothing.
func (s *Store) Prune(cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read snapshot dir: %w", err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return removed, fmt.Errorf("stat snapshot %s: %w", e.Name(), err)
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			return removed, fmt.Errorf("remove snapshot %s: %w", e.Name(), err)
		}
		removed++
	}

	return removed, nil
}
