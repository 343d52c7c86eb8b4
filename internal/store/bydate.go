package store

import (
	"os"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/snodas-swe-etl/internal/domain"
)

// WriteDate replaces the by-date table for one observation date with the
// given records, sorted by basin ID. Reprocessing a date therefore converges
// to the same file no matter how many times it ran before.
func (s *Store) WriteDate(date time.Time, recs []domain.DerivedRecord) error {
	sorted := make([]domain.DerivedRecord, len(recs))
	copy(sorted, recs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].BasinID < sorted[j].BasinID })

	return writeFileAtomic(s.byDatePath(date), func(f *os.File) error {
		return s.schema.writeTable(f, sorted)
	})
}

// Lookup loads the by-date table for one date, keyed by basin ID. The
// second return is false when no table exists for that date.
func (s *Store) Lookup(date time.Time) (map[string]domain.DerivedRecord, bool, error) {
	recs, err := s.schema.readTable(s.byDatePath(date))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	byID := make(map[string]domain.DerivedRecord, len(recs))
	for _, rec := range recs {
		if _, dup := byID[rec.BasinID]; dup {
			continue
		}
		byID[rec.BasinID] = rec
	}
	return byID, true, nil
}

// Dates scans the output directory for by-date tables and returns their
// dates in ascending order. The latest-date snapshot is not an observation
// date and is excluded.
func (s *Store) Dates() ([]time.Time, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	var dates []time.Time
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, byDatePrefix) || !strings.HasSuffix(name, ".csv") {
			continue
		}
		token := strings.TrimSuffix(strings.TrimPrefix(name, byDatePrefix), ".csv")
		if token == latestToken {
			continue
		}
		d, err := time.Parse(domain.DateLayout, token)
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}
