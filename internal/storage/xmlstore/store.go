package xmlstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yegors/runway-redeclaration/internal/model"
	"github.com/yegors/runway-redeclaration/pkg/logger"
)

// Store keeps every airport as <dir>/<name>.xml
type Store struct {
	dir    string
	logger *logger.Logger
}

// NewStore creates a store rooted at dir, creating the directory if needed
func NewStore(dir string, logger *logger.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
	}
	return &Store{
		dir:    dir,
		logger: logger.Named("xml-store"),
	}, nil
}

// Dir returns the storage directory
func (s *Store) Dir() string { return s.dir }

// LoadAll reads every airport document in the storage directory. Files that
// cannot be read are logged and skipped.
func (s *Store) LoadAll() ([]model.AirportRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".xml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var records []model.AirportRecord
	for _, name := range names {
		rec, err := s.ImportFile(filepath.Join(s.dir, name))
		if err != nil {
			s.logger.Warn("Skipping unreadable airport file",
				logger.String("file", name),
				logger.Error(err))
			continue
		}
		records = append(records, rec)
	}

	s.logger.Info("Loaded airports", logger.Int("count", len(records)))
	return records, nil
}

// Save writes the airport to its file, replacing any previous version
func (s *Store) Save(rec model.AirportRecord) error {
	if err := writeFile(s.path(rec.Name), rec); err != nil {
		return err
	}
	s.logger.Debug("Saved airport", logger.String("airport", rec.Name))
	return nil
}

// Delete removes the airport's file. Deleting an unknown airport is not an error.
func (s *Store) Delete(name string) error {
	if err := os.Remove(s.path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete airport %s: %w", name, err)
	}
	s.logger.Debug("Deleted airport", logger.String("airport", name))
	return nil
}

// ImportFile reads a single airport document from anywhere on disk
func (s *Store) ImportFile(path string) (model.AirportRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.AirportRecord{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	rec, err := Decode(f)
	if err != nil {
		return model.AirportRecord{}, fmt.Errorf("failed to import %s: %w", path, err)
	}
	return rec, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".xml")
}

// writeFile encodes into a temporary file next to path and renames it into place
func writeFile(path string, rec model.AirportRecord) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".airport-*.xml")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, rec); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write airport %s: %w", rec.Name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to save airport %s: %w", rec.Name, err)
	}
	return nil
}
