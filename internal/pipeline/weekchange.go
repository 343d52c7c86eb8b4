package pipeline

import (
	"context"
	"time"

	"github.com/couchcryptid/snodas-swe-etl/internal/domain"
)

// DateLookup loads one date's records keyed by basin ID; the second return
// is false when no table exists for that date.
type DateLookup interface {
	Lookup(date time.Time) (map[string]domain.DerivedRecord, bool, error)
}

// WeekChangeResolver computes the trailing seven-day volume change from the
// by-date store.
type WeekChangeResolver struct {
	lookup DateLookup
}

// NewWeekChangeResolver creates a resolver reading prior volumes from lookup.
func NewWeekChangeResolver(lookup DateLookup) *WeekChangeResolver {
	return &WeekChangeResolver{lookup: lookup}
}

// Resolve returns volumeToday minus the volume stored for basinID seven
// days before date. When no table exists for that prior date the change is
// unknowable and the result is nil with no error. When the table exists but
// the basin is absent from it, the result is nil with a
// MissingBasinRowError so the caller can log the gap; the record still
// publishes with an empty change column.
func (r *WeekChangeResolver) Resolve(_ context.Context, basinID string, date time.Time, volumeToday float64) (*float64, error) {
	prior := date.AddDate(0, 0, -7)
	recs, ok, err := r.lookup.Lookup(prior)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	rec, ok := recs[basinID]
	if !ok {
		return nil, &domain.MissingBasinRowError{BasinID: basinID, Date: prior}
	}
	change := volumeToday - rec.VolumeAcFt
	return &change, nil
}
