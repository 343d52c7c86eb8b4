package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/snodas-swe-etl/internal/domain"
)

// row renders a record into the column order of ColumnNames. Nil pointers
// render as empty cells.
func (s Schema) row(rec domain.DerivedRecord) []string {
	cells := []string{
		rec.Date.Format(domain.DateLayout),
		rec.BasinID,
		rec.BasinName,
		formatFloat(rec.MeanIn, 1),
		formatFloat(rec.MeanMM, 0),
		formatFloat(rec.AreaSqMi, 1),
		formatFloat(rec.VolumeAcFt, 0),
		formatPtr(rec.VolumeChangeAcFt, 0),
		formatFloat(rec.SnowCoverPct, 2),
		rec.UpdatedAt.Format(time.RFC3339),
	}
	if s.Optional.Max {
		cells = append(cells, formatPtr(rec.MaxIn, 1), formatPtr(rec.MaxMM, 0))
	}
	if s.Optional.Min {
		cells = append(cells, formatPtr(rec.MinIn, 1), formatPtr(rec.MinMM, 0))
	}
	if s.Optional.StdDev {
		cells = append(cells, formatPtr(rec.StdDevIn, 1), formatPtr(rec.StdDevMM, 0))
	}
	return cells
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func formatPtr(v *float64, prec int) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v, prec)
}

// writeTable writes the header and all rows to w.
func (s Schema) writeTable(w io.Writer, recs []domain.DerivedRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(s.ColumnNames()); err != nil {
		return err
	}
	for _, rec := range recs {
		if err := cw.Write(s.row(rec)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// readTable reads a store CSV back into records, mapping columns by header
// name so tables written with a different optional-column set still load.
// Fully blank rows are dropped.
func (s Schema) readTable(path string) ([]domain.DerivedRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}

	var recs []domain.DerivedRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if blankRow(row) {
			continue
		}
		rec, err := s.parseRow(idx, row)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}

func (s Schema) parseRow(idx map[string]int, row []string) (domain.DerivedRecord, error) {
	cell := func(name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var rec domain.DerivedRecord
	var err error

	rec.Date, err = time.Parse(domain.DateLayout, cell(colDate))
	if err != nil {
		return rec, fmt.Errorf("bad date %q: %w", cell(colDate), err)
	}
	rec.BasinID = cell(s.IDField)
	rec.BasinName = cell(s.NameField)

	if rec.MeanIn, err = parseFloat(cell(colMeanIn)); err != nil {
		return rec, err
	}
	if rec.MeanMM, err = parseFloat(cell(colMeanMM)); err != nil {
		return rec, err
	}
	if rec.AreaSqMi, err = parseFloat(cell(colArea)); err != nil {
		return rec, err
	}
	if rec.VolumeAcFt, err = parseFloat(cell(colVolume)); err != nil {
		return rec, err
	}
	if rec.SnowCoverPct, err = parseFloat(cell(colSnowCover)); err != nil {
		return rec, err
	}
	if rec.VolumeChangeAcFt, err = parseOptional(cell(colWeekChange)); err != nil {
		return rec, err
	}
	if updated := cell(colUpdated); updated != "" {
		if rec.UpdatedAt, err = time.Parse(time.RFC3339, updated); err != nil {
			return rec, fmt.Errorf("bad timestamp %q: %w", updated, err)
		}
	}

	if rec.MaxIn, err = parseOptional(cell(colMaxIn)); err != nil {
		return rec, err
	}
	if rec.MaxMM, err = parseOptional(cell(colMaxMM)); err != nil {
		return rec, err
	}
	if rec.MinIn, err = parseOptional(cell(colMinIn)); err != nil {
		return rec, err
	}
	if rec.MinMM, err = parseOptional(cell(colMinMM)); err != nil {
		return rec, err
	}
	if rec.StdDevIn, err = parseOptional(cell(colStdDevIn)); err != nil {
		return rec, err
	}
	if rec.StdDevMM, err = parseOptional(cell(colStdDevMM)); err != nil {
		return rec, err
	}

	return rec, nil
}

func parseFloat(cell string) (float64, error) {
	if cell == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, fmt.Errorf("bad numeric cell %q: %w", cell, err)
	}
	return v, nil
}

func parseOptional(cell string) (*float64, error) {
	if cell == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil, fmt.Errorf("bad numeric cell %q: %w", cell, err)
	}
	return &v, nil
}
