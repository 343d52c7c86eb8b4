package store

import (
	"os"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/snodas-swe-etl/internal/domain"
)

// UpsertForDate merges one date's records into the per-basin history
// tables. For each basin, any existing row for the date is removed before
// the new row is appended, and the table is kept sorted by date ascending.
func (s *Store) UpsertForDate(date time.Time, recs []domain.DerivedRecord) error {
	for _, rec := range recs {
		if err := s.upsertBasinRow(rec.BasinID, date, rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) upsertBasinRow(basinID string, date time.Time, rec domain.DerivedRecord) error {
	existing, err := s.BasinRows(basinID)
	if err != nil {
		return err
	}

	rows := existing[:0:0]
	for _, r := range existing {
		if r.Date.Equal(date) {
			continue
		}
		rows = append(rows, r)
	}
	rows = append(rows, rec)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

	return writeFileAtomic(s.byBasinPath(basinID), func(f *os.File) error {
		return s.schema.writeTable(f, rows)
	})
}

// BasinRows loads one basin's history table. A missing table is an empty
// history, not an error.
func (s *Store) BasinRows(basinID string) ([]domain.DerivedRecord, error) {
	recs, err := s.schema.readTable(s.byBasinPath(basinID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return recs, nil
}

// Deduplicate rewrites every per-basin table keeping the first row for each
// date and dropping blank rows. Tables that were already clean are rewritten
// unchanged; the pass is idempotent.
func (s *Store) Deduplicate() error {
	ids, err := s.basinIDs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.deduplicateBasin(id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) deduplicateBasin(basinID string) error {
	rows, err := s.BasinRows(basinID)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(rows))
	deduped := rows[:0:0]
	for _, r := range rows {
		key := r.Date.Format(domain.DateLayout)
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, r)
	}
	sort.Slice(deduped, func(i, j int) bool { return deduped[i].Date.Before(deduped[j].Date) })

	return writeFileAtomic(s.byBasinPath(basinID), func(f *os.File) error {
		return s.schema.writeTable(f, deduped)
	})
}

// basinIDs scans the output directory for per-basin tables.
func (s *Store) basinIDs() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, byBasinPrefix) || !strings.HasSuffix(name, ".csv") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(name, byBasinPrefix), ".csv"))
	}
	sort.Strings(ids)
	return ids, nil
}
