package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/snodas-swe-etl/internal/domain"
)

// fakeLookup serves canned by-date tables keyed by YYYYMMDD.
type fakeLookup struct {
	tables map[string]map[string]domain.DerivedRecord
}

func (f *fakeLookup) Lookup(date time.Time) (map[string]domain.DerivedRecord, bool, error) {
	recs, ok := f.tables[date.Format(domain.DateLayout)]
	return recs, ok, nil
}

func TestWeekChangeResolver(t *testing.T) {
	d := time.Date(2024, 4, 26, 0, 0, 0, 0, time.UTC)
	prior := d.AddDate(0, 0, -7)

	t.Run("prior volume present", func(t *testing.T) {
		lookup := &fakeLookup{tables: map[string]map[string]domain.DerivedRecord{
			prior.Format(domain.DateLayout): {
				"B": {BasinID: "B", VolumeAcFt: 120.0},
			},
		}}
		r := NewWeekChangeResolver(lookup)

		change, err := r.Resolve(context.Background(), "B", d, 135.0)
		require.NoError(t, err)
		require.NotNil(t, change)
		assert.Equal(t, 15.0, *change)
	})

	t.Run("no table for prior date", func(t *testing.T) {
		r := NewWeekChangeResolver(&fakeLookup{tables: map[string]map[string]domain.DerivedRecord{}})

		change, err := r.Resolve(context.Background(), "B", d, 135.0)
		require.NoError(t, err)
		assert.Nil(t, change)
	})

	t.Run("table exists but basin row missing", func(t *testing.T) {
		lookup := &fakeLookup{tables: map[string]map[string]domain.DerivedRecord{
			prior.Format(domain.DateLayout): {
				"OTHER": {BasinID: "OTHER", VolumeAcFt: 1.0},
			},
		}}
		r := NewWeekChangeResolver(lookup)

		change, err := r.Resolve(context.Background(), "B", d, 135.0)
		require.Error(t, err)
		assert.Nil(t, change)

		var missing *domain.MissingBasinRowError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "B", missing.BasinID)
		assert.Equal(t, prior, missing.Date)
	})
}
