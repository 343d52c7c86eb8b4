package snodas

import (
	"fmt"
	"math"

	"github.com/ctessum/geom/proj"

	"github.com/couchcryptid/snodas-swe-etl/internal/domain"
)

// warp resamples src onto a new grid in the dst spatial reference covering
// (xmin,ymin)-(xmax,ymax) with square cells of the given size. Nearest
// neighbor sampling: each destination cell center is transformed back into
// the source reference and reads the cell it lands in. Destination cells
// falling outside the source grid become nodata.
func warp(src *domain.Raster, dst *proj.SR, xmin, ymin, xmax, ymax, cell float64) (*domain.Raster, error) {
	if (dst == nil) != (src.SR == nil) {
		return nil, fmt.Errorf("snodas: cannot warp between a referenced and an unreferenced grid")
	}

	transform := func(x, y float64) (float64, float64, error) { return x, y, nil }
	if dst != nil {
		t, err := dst.NewTransform(src.SR)
		if err != nil {
			return nil, fmt.Errorf("snodas: building warp transform: %w", err)
		}
		transform = t
	}

	cols := int(math.Ceil((xmax - xmin) / cell))
	rows := int(math.Ceil((ymax - ymin) / cell))
	if cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("snodas: empty warp extent")
	}

	out := domain.NewRaster(rows, cols, xmin, ymax, cell, cell, dst)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			c := out.CellCenter(row, col)
			sx, sy, err := transform(c.X, c.Y)
			if err != nil {
				out.SetValue(domain.NoDataValue, row, col)
				continue
			}
			v, ok := src.Sample(sx, sy)
			if !ok {
				out.SetValue(domain.NoDataValue, row, col)
				continue
			}
			out.SetValue(v, row, col)
		}
	}
	return out, nil
}

// deriveExtent projects the source grid's corner points into dst and
// returns their bounding box, for deployments that warp without an explicit
// study-area extent.
func deriveExtent(src *domain.Raster, dst *proj.SR) (xmin, ymin, xmax, ymax float64, err error) {
	transform, err := src.SR.NewTransform(dst)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("snodas: deriving extent: %w", err)
	}

	b := src.Bounds()
	corners := [][2]float64{
		{b.Min.X, b.Min.Y}, {b.Min.X, b.Max.Y},
		{b.Max.X, b.Min.Y}, {b.Max.X, b.Max.Y},
	}
	xmin, ymin = math.Inf(1), math.Inf(1)
	xmax, ymax = math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		x, y, err := transform(c[0], c[1])
		if err != nil {
			return 0, 0, 0, 0, fmt.Errorf("snodas: deriving extent: %w", err)
		}
		xmin = math.Min(xmin, x)
		ymin = math.Min(ymin, y)
		xmax = math.Max(xmax, x)
		ymax = math.Max(ymax, y)
	}
	return xmin, ymin, xmax, ymax, nil
}
