package domain

import (
	"time"

	"github.com/ctessum/geom"
)

// DateLayout is the YYYYMMDD token used in store filenames, manifest lines,
// and the date column of every published table.
const DateLayout = "20060102"

// Basin is one drainage basin from the boundary polygon layer. Immutable
// for the lifetime of a processing run.
type Basin struct {
	// ID is the stable identifier from the layer's configured ID field.
	ID string

	// Name is the display name; falls back to ID when the layer has no
	// name field or the field is blank.
	Name string

	// Geom is the basin boundary, a Polygon or MultiPolygon in the layer's
	// spatial reference.
	Geom geom.Polygonal
}

// ZonalAggregate holds the raw per-basin statistics for one date, in the
// raster's native units (mm of SWE). Ephemeral: only derived metrics are
// persisted.
type ZonalAggregate struct {
	MeanMM   float64
	MinMM    float64
	MaxMM    float64
	StdDevMM float64

	// CellCount is the number of non-nodata SWE cells whose centers fall
	// within the basin.
	CellCount int

	// SnowCellSum is the sum of the binary snow-cover raster over the same
	// cells, i.e. the number of snow-covered cells.
	SnowCellSum float64
}

// DerivedRecord is the published row for one (basin, date): the central
// invariant of the stores is that exactly one of these exists per basin per
// date. Optional statistics and the week change are nil when absent, and
// nil is rendered as an empty column, never a fabricated zero.
type DerivedRecord struct {
	Date      time.Time
	BasinID   string
	BasinName string

	MeanIn       float64
	MeanMM       float64
	AreaSqMi     float64
	VolumeAcFt   float64
	SnowCoverPct float64

	// VolumeChangeAcFt is today's volume minus the volume recorded seven
	// days earlier, nil when no history exists.
	VolumeChangeAcFt *float64

	UpdatedAt time.Time

	// Flag-gated optional statistics.
	MaxIn    *float64
	MaxMM    *float64
	MinIn    *float64
	MinMM    *float64
	StdDevIn *float64
	StdDevMM *float64
}
