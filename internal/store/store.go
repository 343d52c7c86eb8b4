// Package store persists the published snowpack products: the per-date and
// per-basin CSV tables, the date manifest, the latest-date snapshot, and the
// per-date geometry outputs. All files live flat in one output directory and
// every write is whole-file replacement, so a crash mid-write never leaves a
// partial table behind.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/snodas-swe-etl/internal/domain"
)

const (
	byDatePrefix  = "SnowpackStatisticsByDate_"
	byBasinPrefix = "SnowpackStatisticsByBasin_"
	latestToken   = "LatestDate"
	manifestName  = "ListOfDates.txt"
)

// Store owns the output directory and the record schema used for every
// table it writes.
type Store struct {
	root   string
	schema Schema
}

// New creates the output directory if needed and returns a store writing
// with the given schema.
func New(root string, schema Schema) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	return &Store{root: root, schema: schema}, nil
}

// Root returns the output directory path.
func (s *Store) Root() string {
	return s.root
}

// Schema returns the record schema the store writes with.
func (s *Store) Schema() Schema {
	return s.schema
}

func (s *Store) byDatePath(date time.Time) string {
	return filepath.Join(s.root, byDatePrefix+date.Format(domain.DateLayout)+".csv")
}

func (s *Store) byBasinPath(basinID string) string {
	return filepath.Join(s.root, byBasinPrefix+basinID+".csv")
}

// writeFileAtomic writes data to path via a temp file in the same directory
// followed by a rename. On any failure the previous file version is left in
// place and a StoreWriteError is returned.
func writeFileAtomic(path string, write func(f *os.File) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp")
	if err != nil {
		return &domain.StoreWriteError{Path: path, Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := write(tmp); err != nil {
		tmp.Close()
		return &domain.StoreWriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &domain.StoreWriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &domain.StoreWriteError{Path: path, Err: err}
	}
	return nil
}
