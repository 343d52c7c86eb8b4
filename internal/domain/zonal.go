package domain

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
)

// Statistic selects a single zonal aggregate for StatsEngine.Compute.
type Statistic int

const (
	StatMean Statistic = iota
	StatMin
	StatMax
	StatStdDev
	StatCount
	StatSum
)

func (s Statistic) String() string {
	switch s {
	case StatMean:
		return "mean"
	case StatMin:
		return "min"
	case StatMax:
		return "max"
	case StatStdDev:
		return "stddev"
	case StatCount:
		return "count"
	case StatSum:
		return "sum"
	default:
		return fmt.Sprintf("statistic(%d)", int(s))
	}
}

// StatsEngine computes zonal statistics over rasters aligned with the basin
// layer's spatial reference. It never reprojects: a raster in a different
// spatial reference is an upstream preparation bug, reported as
// ErrRasterMisalignment.
type StatsEngine struct {
	basinSR *proj.SR
}

// NewStatsEngine creates an engine for basins in the given spatial
// reference. A nil reference matches only rasters that also carry none.
func NewStatsEngine(basinSR *proj.SR) *StatsEngine {
	return &StatsEngine{basinSR: basinSR}
}

func (e *StatsEngine) checkAlignment(r *Raster) error {
	if !srEqual(r.SR, e.basinSR) {
		return ErrRasterMisalignment
	}
	return nil
}

// Aggregate computes the full per-basin aggregate for one raster pair:
// mean/min/max/stddev and count over non-nodata SWE cells whose centers
// fall within the basin, plus the snow-cover sum over the same cells.
// Read-only on its inputs.
func (e *StatsEngine) Aggregate(b Basin, pair *RasterPair) (ZonalAggregate, error) {
	if err := e.checkAlignment(pair.SWE); err != nil {
		return ZonalAggregate{}, fmt.Errorf("swe raster: %w", err)
	}
	if err := e.checkAlignment(pair.SnowCover); err != nil {
		return ZonalAggregate{}, fmt.Errorf("snow cover raster: %w", err)
	}
	if !pair.SWE.SameGrid(pair.SnowCover) {
		return ZonalAggregate{}, fmt.Errorf("snow cover grid differs from swe grid: %w", ErrRasterMisalignment)
	}

	var (
		count      int
		sum, sumSq float64
		lo         = math.Inf(1)
		hi         = math.Inf(-1)
		coverSum   float64
	)

	swe := pair.SWE
	r0, r1, c0, c1 := swe.cellRange(b.Geom.Bounds())
	for row := r0; row < r1; row++ {
		for col := c0; col < c1; col++ {
			v, ok := swe.Value(row, col)
			if !ok {
				continue
			}
			if swe.CellCenter(row, col).Within(b.Geom) == geom.Outside {
				continue
			}
			count++
			sum += v
			sumSq += v * v
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
			if cv, ok := pair.SnowCover.Value(row, col); ok {
				coverSum += cv
			}
		}
	}

	if count == 0 {
		return ZonalAggregate{}, nil
	}

	mean := sum / float64(count)
	// Population variance; guard tiny negatives from float cancellation.
	variance := math.Max(sumSq/float64(count)-mean*mean, 0)

	return ZonalAggregate{
		MeanMM:      mean,
		MinMM:       lo,
		MaxMM:       hi,
		StdDevMM:    math.Sqrt(variance),
		CellCount:   count,
		SnowCellSum: coverSum,
	}, nil
}

// Compute returns a single statistic over one raster for one basin.
func (e *StatsEngine) Compute(b Basin, r *Raster, stat Statistic) (float64, error) {
	if err := e.checkAlignment(r); err != nil {
		return 0, err
	}

	var (
		count      int
		sum, sumSq float64
		lo         = math.Inf(1)
		hi         = math.Inf(-1)
	)
	r0, r1, c0, c1 := r.cellRange(b.Geom.Bounds())
	for row := r0; row < r1; row++ {
		for col := c0; col < c1; col++ {
			v, ok := r.Value(row, col)
			if !ok {
				continue
			}
			if r.CellCenter(row, col).Within(b.Geom) == geom.Outside {
				continue
			}
			count++
			sum += v
			sumSq += v * v
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}

	if count == 0 {
		if stat == StatCount || stat == StatSum {
			return 0, nil
		}
		return math.NaN(), nil
	}

	switch stat {
	case StatMean:
		return sum / float64(count), nil
	case StatMin:
		return lo, nil
	case StatMax:
		return hi, nil
	case StatStdDev:
		mean := sum / float64(count)
		return math.Sqrt(math.Max(sumSq/float64(count)-mean*mean, 0)), nil
	case StatCount:
		return float64(count), nil
	case StatSum:
		return sum, nil
	default:
		return 0, fmt.Errorf("unknown statistic %v", stat)
	}
}
