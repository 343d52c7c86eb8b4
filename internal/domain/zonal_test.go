package domain

import (
	"testing"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// squareBasin returns a basin covering the rectangle (x0,y0)-(x1,y1).
func squareBasin(id string, x0, y0, x1, y1 float64) Basin {
	return Basin{
		ID:   id,
		Name: id,
		Geom: geom.Polygon{{
			{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}, {X: x0, Y: y0},
		}},
	}
}

// testPair builds a 10x10 grid of 1000m cells with the northwest corner at
// (0, 10000), filled with the given SWE value.
func testPair(swe float64) *RasterPair {
	r := NewRaster(10, 10, 0, 10000, 1000, 1000, nil)
	for row := 0; row < 10; row++ {
		for col := 0; col < 10; col++ {
			r.SetValue(swe, row, col)
		}
	}
	return &RasterPair{Date: testDate, SWE: r, SnowCover: SnowCoverFromSWE(r)}
}

func TestStatsEngine_Aggregate(t *testing.T) {
	engine := NewStatsEngine(nil)
	pair := testPair(50)

	// Vary some cells inside the basin: rows 0-4, cols 0-4.
	pair.SWE.SetValue(10, 0, 0)
	pair.SWE.SetValue(90, 1, 1)
	pair.SWE.SetValue(0, 2, 2) // bare ground
	pair.SnowCover = SnowCoverFromSWE(pair.SWE)

	basin := squareBasin("101", 0, 5000, 5000, 10000)
	agg, err := engine.Aggregate(basin, pair)
	require.NoError(t, err)

	assert.Equal(t, 25, agg.CellCount)
	assert.Equal(t, 0.0, agg.MinMM)
	assert.Equal(t, 90.0, agg.MaxMM)
	// 22 cells at 50 plus 10, 90 and 0: mean = 1200/25 = 48.
	assert.InDelta(t, 48.0, agg.MeanMM, 1e-9)
	// One bare cell out of 25.
	assert.Equal(t, 24.0, agg.SnowCellSum)
	assert.Greater(t, agg.StdDevMM, 0.0)
}

func TestStatsEngine_NoDataExcluded(t *testing.T) {
	engine := NewStatsEngine(nil)
	pair := testPair(50)
	pair.SWE.SetValue(NoDataValue, 0, 0)
	pair.SWE.SetValue(NoDataValue, 0, 1)
	pair.SnowCover = SnowCoverFromSWE(pair.SWE)

	basin := squareBasin("101", 0, 5000, 5000, 10000)
	agg, err := engine.Aggregate(basin, pair)
	require.NoError(t, err)

	assert.Equal(t, 23, agg.CellCount)
	assert.Equal(t, 50.0, agg.MinMM)
}

func TestStatsEngine_BasinOutsideGrid(t *testing.T) {
	engine := NewStatsEngine(nil)
	pair := testPair(50)

	basin := squareBasin("far", 100000, 100000, 110000, 110000)
	agg, err := engine.Aggregate(basin, pair)
	require.NoError(t, err)
	assert.Zero(t, agg.CellCount)
}

func TestStatsEngine_Misalignment(t *testing.T) {
	wgs84, err := proj.Parse("+proj=longlat +datum=WGS84 +no_defs")
	require.NoError(t, err)

	engine := NewStatsEngine(wgs84)
	pair := testPair(50) // rasters carry no spatial reference

	basin := squareBasin("101", 0, 5000, 5000, 10000)
	_, err = engine.Aggregate(basin, pair)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRasterMisalignment)
}

func TestStatsEngine_Compute(t *testing.T) {
	engine := NewStatsEngine(nil)
	pair := testPair(50)
	basin := squareBasin("101", 0, 5000, 5000, 10000)

	tests := []struct {
		stat Statistic
		want float64
	}{
		{StatMean, 50},
		{StatMin, 50},
		{StatMax, 50},
		{StatStdDev, 0},
		{StatCount, 25},
		{StatSum, 1250},
	}
	for _, tc := range tests {
		t.Run(tc.stat.String(), func(t *testing.T) {
			got, err := engine.Compute(basin, pair.SWE, tc.stat)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestSnowCoverFromSWE(t *testing.T) {
	r := NewRaster(1, 3, 0, 1000, 1000, 1000, nil)
	r.SetValue(25, 0, 0)
	r.SetValue(0, 0, 1)
	r.SetValue(NoDataValue, 0, 2)

	cover := SnowCoverFromSWE(r)

	v, ok := cover.Value(0, 0)
	require.True(t, ok)
	assert.Equal(t, 1.0, v)

	v, ok = cover.Value(0, 1)
	require.True(t, ok)
	assert.Equal(t, 0.0, v)

	_, ok = cover.Value(0, 2)
	assert.False(t, ok)
}

func TestRaster_SetValueZeroOverwrites(t *testing.T) {
	r := NewRaster(2, 2, 0, 2000, 1000, 1000, nil)
	r.SetValue(50, 1, 1)
	r.SetValue(0, 1, 1) // snow melted out

	v, ok := r.Value(1, 1)
	require.True(t, ok)
	assert.Equal(t, 0.0, v)
}

func TestRaster_Clip(t *testing.T) {
	r := NewRaster(10, 10, 0, 10000, 1000, 1000, nil)
	for row := 0; row < 10; row++ {
		for col := 0; col < 10; col++ {
			r.SetValue(float64(row*10+col), row, col)
		}
	}

	clipped := r.Clip(2000, 5000, 6000, 8000)
	assert.Equal(t, 3, clipped.Rows())
	assert.Equal(t, 4, clipped.Cols())
	assert.Equal(t, 2000.0, clipped.X0)
	assert.Equal(t, 8000.0, clipped.Y0)

	// Row 2 of the clip is source row 4, col 0 is source col 2.
	v, ok := clipped.Value(2, 0)
	require.True(t, ok)
	assert.Equal(t, 42.0, v)
}
