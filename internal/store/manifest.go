package store

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/snodas-swe-etl/internal/domain"
)

// WriteManifest rewrites ListOfDates.txt from the by-date tables currently
// on disk, newest first. Downstream viewers read this file to populate
// their date pickers.
func (s *Store) WriteManifest() error {
	dates, err := s.Dates()
	if err != nil {
		return err
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })

	var b strings.Builder
	for _, d := range dates {
		b.WriteString(d.Format(domain.DateLayout))
		b.WriteByte('\n')
	}

	path := filepath.Join(s.root, manifestName)
	return writeFileAtomic(path, func(f *os.File) error {
		_, err := f.WriteString(b.String())
		return err
	})
}

// PromoteLatest copies one date's published files to the LatestDate names,
// giving viewers a stable path to the most recent product set. Absent
// geometry sidecars are skipped.
func (s *Store) PromoteLatest(date time.Time) error {
	token := date.Format(domain.DateLayout)
	for _, ext := range []string{".csv", ".shp", ".shx", ".dbf", ".prj", ".geojson"} {
		src := filepath.Join(s.root, byDatePrefix+token+ext)
		dst := filepath.Join(s.root, byDatePrefix+latestToken+ext)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		if err := copyFile(src, dst); err != nil {
			return &domain.StoreWriteError{Path: dst, Err: err}
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return writeFileAtomic(dst, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
}
