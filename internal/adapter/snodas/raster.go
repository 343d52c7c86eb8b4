package snodas

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/ctessum/geom/proj"

	"github.com/couchcryptid/snodas-swe-etl/internal/domain"
)

// gridHeader holds the georeferencing fields from a SNODAS product .txt
// header.
type gridHeader struct {
	cols, rows int
	minX, maxY float64
	dx, dy     float64
	noData     float64
}

// parseGridHeader reads the colon-separated key/value lines of a SNODAS
// header. Unknown keys are ignored; missing required keys are an error.
func parseGridHeader(raw []byte) (gridHeader, error) {
	h := gridHeader{noData: domain.NoDataValue}
	seen := map[string]bool{}

	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		var err error
		switch key {
		case "Number of columns":
			h.cols, err = strconv.Atoi(value)
		case "Number of rows":
			h.rows, err = strconv.Atoi(value)
		case "Minimum x-axis coordinate":
			h.minX, err = strconv.ParseFloat(value, 64)
		case "Maximum y-axis coordinate":
			h.maxY, err = strconv.ParseFloat(value, 64)
		case "X-axis resolution":
			h.dx, err = strconv.ParseFloat(value, 64)
		case "Y-axis resolution":
			h.dy, err = strconv.ParseFloat(value, 64)
		case "No data value":
			h.noData, err = strconv.ParseFloat(value, 64)
		default:
			continue
		}
		if err != nil {
			return h, fmt.Errorf("snodas header: bad %s %q: %w", key, value, err)
		}
		seen[key] = true
	}
	if err := sc.Err(); err != nil {
		return h, fmt.Errorf("snodas header: %w", err)
	}

	for _, key := range []string{
		"Number of columns", "Number of rows",
		"Minimum x-axis coordinate", "Maximum y-axis coordinate",
		"X-axis resolution", "Y-axis resolution",
	} {
		if !seen[key] {
			return h, fmt.Errorf("snodas header: missing %q", key)
		}
	}
	if h.cols <= 0 || h.rows <= 0 || h.dx <= 0 || h.dy <= 0 {
		return h, fmt.Errorf("snodas header: degenerate grid %dx%d", h.cols, h.rows)
	}
	return h, nil
}

// decodeRaster converts the flat big-endian int16 body into a raster,
// normalizing the product's no-data marker to the domain value. Values are
// millimeters of SWE.
func decodeRaster(h gridHeader, data []byte, sr *proj.SR) (*domain.Raster, error) {
	want := h.rows * h.cols * 2
	if len(data) != want {
		return nil, fmt.Errorf("snodas data: got %d bytes, want %d for %dx%d grid",
			len(data), want, h.cols, h.rows)
	}

	r := domain.NewRaster(h.rows, h.cols, h.minX, h.maxY, h.dx, h.dy, sr)
	i := 0
	for row := 0; row < h.rows; row++ {
		for col := 0; col < h.cols; col++ {
			v := float64(int16(binary.BigEndian.Uint16(data[i:])))
			i += 2
			if v == h.noData {
				v = domain.NoDataValue
			}
			r.SetValue(v, row, col)
		}
	}
	return r, nil
}
