// Package results persists finished test runs as a JSON array on disk.
package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bobmcallan/moontest/internal/common"
	"github.com/bobmcallan/moontest/internal/models"
)

// JSONStore implements interfaces.ResultStore with a read-modify-write of a
// single file. Concurrent writers to the same path can lose records.
type JSONStore struct {
	path   string
	logger *common.Logger
}

// NewJSONStore creates a store backed by path.
func NewJSONStore(path string, logger *common.Logger) *JSONStore {
	return &JSONStore{path: path, logger: logger}
}

// Path returns the backing file.
func (s *JSONStore) Path() string {
	return s.path
}

// Append adds result's record to the store. Failures are logged and swallowed.
func (s *JSONStore) Append(ctx context.Context, result *models.TestResult) {
	if result == nil {
		return
	}
	if err := s.append(result.ToRecord()); err != nil {
		s.logger.Error().
			Str("path", s.path).
			Str("test", result.Test.Name).
			Err(err).
			Msg("failed to persist test result")
		return
	}
	s.logger.Debug().Str("path", s.path).Str("test", result.Test.Name).Msg("test result persisted")
}

func (s *JSONStore) append(rec models.Record) error {
	records, err := s.read()
	if err != nil {
		return err
	}
	records = append(records, rec)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return &models.PersistenceError{Path: s.path, Op: "encode", Err: err}
	}
	if err := writeAtomic(s.path, data); err != nil {
		return &models.PersistenceError{Path: s.path, Op: "write", Err: err}
	}
	return nil
}

// Load returns every stored record. A missing file is an empty store.
func (s *JSONStore) Load(ctx context.Context) ([]models.Record, error) {
	return s.read()
}

func (s *JSONStore) read() ([]models.Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.Record{}, nil
	}
	if err != nil {
		return nil, &models.PersistenceError{Path: s.path, Op: "read", Err: err}
	}
	if len(data) == 0 {
		return []models.Record{}, nil
	}

	var records []models.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &models.PersistenceError{Path: s.path, Op: "decode", Err: err}
	}
	if records == nil {
		records = []models.Record{}
	}
	return records, nil
}

// writeAtomic writes data to a temp file next to path and renames it over
// path, so readers see either the old or the new array.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
