package domain

import (
	"math"
	"time"
)

// Unit conversion constants. See the package documentation for the volume
// formula derivation.
const (
	mmPerInch         = 25.4
	sqMetersPerSqMile = 2589988.10
	acresPerSqMile    = 640.0
	mmPerFoot         = 304.8
)

// OptionalStats gates the Max/Min/StdDev column pairs. The three flags are
// independent and must produce a consistent record shape across the
// by-basin store, the by-date store, and both geometry formats.
type OptionalStats struct {
	Max    bool
	Min    bool
	StdDev bool
}

// Derive converts a raw zonal aggregate into the published record for one
// basin and date. Pure function, no I/O, and no rounding: callers attach
// the week change and then round the whole record in one pass via Round,
// because the volume formula must consume the unrounded mean.
func Derive(agg ZonalAggregate, date time.Time, b Basin, cellDx, cellDy float64, opts OptionalStats) DerivedRecord {
	areaSqMi := cellDx * cellDy * float64(agg.CellCount) / sqMetersPerSqMile
	volumeAcFt := areaSqMi * agg.MeanMM * acresPerSqMile / mmPerFoot

	coverPct := 0.0
	if agg.CellCount > 0 {
		coverPct = agg.SnowCellSum / float64(agg.CellCount) * 100
	}

	rec := DerivedRecord{
		Date:         date,
		BasinID:      b.ID,
		BasinName:    b.Name,
		MeanIn:       agg.MeanMM / mmPerInch,
		MeanMM:       agg.MeanMM,
		AreaSqMi:     areaSqMi,
		VolumeAcFt:   volumeAcFt,
		SnowCoverPct: coverPct,
		UpdatedAt:    clock.Now().UTC(),
	}

	if opts.Max {
		rec.MaxIn = ptr(agg.MaxMM / mmPerInch)
		rec.MaxMM = ptr(agg.MaxMM)
	}
	if opts.Min {
		rec.MinIn = ptr(agg.MinMM / mmPerInch)
		rec.MinMM = ptr(agg.MinMM)
	}
	if opts.StdDev {
		rec.StdDevIn = ptr(agg.StdDevMM / mmPerInch)
		rec.StdDevMM = ptr(agg.StdDevMM)
	}

	return rec
}

// Round applies the publication rounding policy to every value in the
// record. Call exactly once, after all raw values (including the week
// change) are in place.
func (r *DerivedRecord) Round() {
	r.MeanIn = roundTo(r.MeanIn, 1)
	r.MeanMM = roundTo(r.MeanMM, 0)
	r.AreaSqMi = roundTo(r.AreaSqMi, 1)
	r.VolumeAcFt = roundTo(r.VolumeAcFt, 0)
	r.SnowCoverPct = roundTo(r.SnowCoverPct, 2)
	roundPtr(r.VolumeChangeAcFt, 0)
	roundPtr(r.MaxIn, 1)
	roundPtr(r.MaxMM, 0)
	roundPtr(r.MinIn, 1)
	roundPtr(r.MinMM, 0)
	roundPtr(r.StdDevIn, 1)
	roundPtr(r.StdDevMM, 0)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func roundPtr(v *float64, places int) {
	if v != nil {
		*v = roundTo(*v, places)
	}
}

func ptr(v float64) *float64 { return &v }
