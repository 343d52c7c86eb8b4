// Package domain models daily SNODAS snow-water-equivalent statistics for a
// set of basin polygons.
//
// # Data Source
//
// SNODAS (Snow Data Assimilation System) publishes a daily gridded model of
// snowpack state for the continental US at https://nsidc.org/data/g02158.
// The masked product ships as a tar archive of gzipped flat binary grids,
// one per physical variable; product code 1034 is snow water equivalent
// (SWE) in millimeters, with -9999 marking cells outside the model domain.
// The download/extract/decode path lives in the snodas adapter; this package
// only sees decoded rasters.
//
// # Units and Conversions
//
// SWE arrives in millimeters and is published in both millimeters and
// inches (25.4 mm/in). Basin area is published in square miles
// (2,589,988.10 m² per mi²). SWE volume is published in acre-feet:
//
//	volume_acft = area_sqmi * mean_mm * 640 / 304.8
//
// which is the basin area in acres (640 acres/mi²) times the mean SWE depth
// in feet (304.8 mm/ft).
//
// # Rounding
//
// Published values are rounded late: every raw value for a record,
// including the 1-week volume change, is computed from unrounded inputs
// before any rounding is applied. The volume formula in particular consumes
// the unrounded mean; rounding the mean first would shift volumes by whole
// acre-feet on large basins. Decimal places per column: snow cover 2, area
// and inch-valued columns 1, millimeter-valued and acre-foot columns 0.
//
// # Cell Inclusion
//
// Zonal statistics include a raster cell when its center point falls inside
// (or on the edge of) the basin polygon, matching the inclusion policy of
// the raster tooling used upstream of this pipeline.
package domain
