package domain

import (
	"math"
	"time"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/ctessum/sparse"
)

// NoDataValue marks cells outside the SNODAS model domain.
const NoDataValue = -9999

// Raster is a single-band north-up regular grid. Row 0 is the northernmost
// row; (X0, Y0) is the grid's northwest corner (west edge, north edge) and
// Dx, Dy are positive cell sizes in the units of the spatial reference.
type Raster struct {
	Data *sparse.DenseArray // shape [rows, cols]

	X0, Y0 float64
	Dx, Dy float64

	NoData float64
	SR     *proj.SR
}

// NewRaster allocates a zero-filled raster with NoData set to NoDataValue.
func NewRaster(rows, cols int, x0, y0, dx, dy float64, sr *proj.SR) *Raster {
	return &Raster{
		Data:   sparse.ZerosDense(rows, cols),
		X0:     x0,
		Y0:     y0,
		Dx:     dx,
		Dy:     dy,
		NoData: NoDataValue,
		SR:     sr,
	}
}

// Rows returns the number of grid rows.
func (r *Raster) Rows() int { return r.Data.Shape[0] }

// Cols returns the number of grid columns.
func (r *Raster) Cols() int { return r.Data.Shape[1] }

// Value returns the cell value and whether it holds data (false for nodata
// cells and out-of-grid indices).
func (r *Raster) Value(row, col int) (float64, bool) {
	if row < 0 || col < 0 || row >= r.Rows() || col >= r.Cols() {
		return 0, false
	}
	v := r.Data.Get(row, col)
	if v == r.NoData || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// SetValue stores v at the given cell. It writes the backing slice
// directly: DenseArray.Set drops zero values, and zero SWE (bare ground)
// must land even over a previously non-zero cell.
func (r *Raster) SetValue(v float64, row, col int) {
	r.Data.Elements[r.Data.Index1d(row, col)] = v
}

// Sample returns the value of the cell containing the point (x, y).
func (r *Raster) Sample(x, y float64) (float64, bool) {
	col := int(math.Floor((x - r.X0) / r.Dx))
	row := int(math.Floor((r.Y0 - y) / r.Dy))
	return r.Value(row, col)
}

// CellCenter returns the coordinates of the cell's center point.
func (r *Raster) CellCenter(row, col int) geom.Point {
	return geom.Point{
		X: r.X0 + (float64(col)+0.5)*r.Dx,
		Y: r.Y0 - (float64(row)+0.5)*r.Dy,
	}
}

// Bounds returns the grid's rectangular extent.
func (r *Raster) Bounds() *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: r.X0, Y: r.Y0 - float64(r.Rows())*r.Dy},
		Max: geom.Point{X: r.X0 + float64(r.Cols())*r.Dx, Y: r.Y0},
	}
}

// cellRange returns the half-open row/column range covering b, clamped to
// the grid.
func (r *Raster) cellRange(b *geom.Bounds) (r0, r1, c0, c1 int) {
	c0 = int(math.Floor((b.Min.X - r.X0) / r.Dx))
	c1 = int(math.Ceil((b.Max.X - r.X0) / r.Dx))
	r0 = int(math.Floor((r.Y0 - b.Max.Y) / r.Dy))
	r1 = int(math.Ceil((r.Y0 - b.Min.Y) / r.Dy))
	r0 = max(r0, 0)
	c0 = max(c0, 0)
	r1 = min(r1, r.Rows())
	c1 = min(c1, r.Cols())
	return r0, r1, c0, c1
}

// Clip returns a new raster covering the intersection of r with the given
// extent, snapped outward to cell edges. The underlying data is copied.
func (r *Raster) Clip(xmin, ymin, xmax, ymax float64) *Raster {
	b := &geom.Bounds{Min: geom.Point{X: xmin, Y: ymin}, Max: geom.Point{X: xmax, Y: ymax}}
	r0, r1, c0, c1 := r.cellRange(b)
	if r1 <= r0 || c1 <= c0 {
		return NewRaster(0, 0, r.X0, r.Y0, r.Dx, r.Dy, r.SR)
	}
	out := NewRaster(r1-r0, c1-c0,
		r.X0+float64(c0)*r.Dx, r.Y0-float64(r0)*r.Dy, r.Dx, r.Dy, r.SR)
	out.NoData = r.NoData
	for row := r0; row < r1; row++ {
		for col := c0; col < c1; col++ {
			out.SetValue(r.Data.Get(row, col), row-r0, col-c0)
		}
	}
	return out
}

// SameGrid reports whether o shares r's grid geometry and spatial
// reference, which both rasters of a pair must.
func (r *Raster) SameGrid(o *Raster) bool {
	const eps = 1e-9
	return r.Rows() == o.Rows() && r.Cols() == o.Cols() &&
		math.Abs(r.X0-o.X0) < eps && math.Abs(r.Y0-o.Y0) < eps &&
		math.Abs(r.Dx-o.Dx) < eps && math.Abs(r.Dy-o.Dy) < eps &&
		srEqual(r.SR, o.SR)
}

func srEqual(a, b *proj.SR) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(b, 3)
}

// RasterPair is the decoded input for one date: the SWE grid and the binary
// snow-cover grid derived from it, sharing one grid and projection.
// Consumed once by the orchestrator, never persisted.
type RasterPair struct {
	Date      time.Time
	SWE       *Raster
	SnowCover *Raster
}

// SnowCoverFromSWE derives the binary snow-cover raster: 1 where any SWE is
// present, 0 where bare, nodata carried through.
func SnowCoverFromSWE(swe *Raster) *Raster {
	out := NewRaster(swe.Rows(), swe.Cols(), swe.X0, swe.Y0, swe.Dx, swe.Dy, swe.SR)
	out.NoData = swe.NoData
	for row := 0; row < swe.Rows(); row++ {
		for col := 0; col < swe.Cols(); col++ {
			v, ok := swe.Value(row, col)
			switch {
			case !ok:
				out.SetValue(swe.NoData, row, col)
			case v > 0:
				out.SetValue(1, row, col)
			}
		}
	}
	return out
}
