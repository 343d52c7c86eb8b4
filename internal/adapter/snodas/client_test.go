package snodas

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/snodas-swe-etl/internal/config"
	"github.com/couchcryptid/snodas-swe-etl/internal/observability"
)

const testHeader = `Format version: NOHRSC GIS/RS raster file v1.1
Data type: integer
Data units: Meters / 1000.0
Number of columns: 3
Number of rows: 2
Minimum x-axis coordinate: 0
Maximum y-axis coordinate: 2000
X-axis resolution: 1000
Y-axis resolution: 1000
No data value: -9999
`

func encodeCells(vals ...int16) []byte {
	buf := make([]byte, 2*len(vals))
	for i, v := range vals {
		binary.BigEndian.PutUint16(buf[2*i:], uint16(v))
	}
	return buf
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write(data)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

// buildArchive assembles a SNODAS-style daily tar with gzipped SWE members
// plus an unrelated product that must be skipped.
func buildArchive(t *testing.T, header string, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	add := func(name string, content []byte) {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name, Mode: 0o644, Size: int64(len(content)), Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write(content)
		require.NoError(t, err)
	}

	add("us_ssmv11036tS__T0001TTNATS2024042605HP001.dat.gz", gzipBytes(t, []byte{0, 0}))
	add("us_ssmv11034tS__T0001TTNATS2024042605HP001.txt.gz", gzipBytes(t, []byte(header)))
	add("us_ssmv11034tS__T0001TTNATS2024042605HP001.dat.gz", gzipBytes(t, data))

	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	cfg := &config.Config{
		SnodasBaseURL: baseURL,
		SnodasTimeout: 5 * time.Second,
		WorkDir:       t.TempDir(),
		CellSize:      1000,
	}
	c, err := NewClient(cfg, nil, slog.New(slog.NewTextHandler(io.Discard, nil)),
		observability.NewMetricsForTesting())
	require.NoError(t, err)
	return c
}

func TestParseGridHeader(t *testing.T) {
	h, err := parseGridHeader([]byte(testHeader))
	require.NoError(t, err)

	assert.Equal(t, 3, h.cols)
	assert.Equal(t, 2, h.rows)
	assert.Equal(t, 0.0, h.minX)
	assert.Equal(t, 2000.0, h.maxY)
	assert.Equal(t, 1000.0, h.dx)
	assert.Equal(t, 1000.0, h.dy)
	assert.Equal(t, -9999.0, h.noData)
}

func TestParseGridHeader_MissingKey(t *testing.T) {
	_, err := parseGridHeader([]byte("Number of columns: 3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Number of rows")
}

func TestDecodeRaster(t *testing.T) {
	h, err := parseGridHeader([]byte(testHeader))
	require.NoError(t, err)

	r, err := decodeRaster(h, encodeCells(100, 0, -9999, 250, 30, 7), nil)
	require.NoError(t, err)

	v, ok := r.Value(0, 0)
	require.True(t, ok)
	assert.Equal(t, 100.0, v)

	v, ok = r.Value(0, 1)
	require.True(t, ok)
	assert.Equal(t, 0.0, v)

	_, ok = r.Value(0, 2)
	assert.False(t, ok)

	v, ok = r.Value(1, 0)
	require.True(t, ok)
	assert.Equal(t, 250.0, v)
}

func TestDecodeRaster_SizeMismatch(t *testing.T) {
	h, err := parseGridHeader([]byte(testHeader))
	require.NoError(t, err)

	_, err = decodeRaster(h, encodeCells(1, 2, 3), nil)
	require.Error(t, err)
}

func TestExtractSWE(t *testing.T) {
	archive := buildArchive(t, testHeader, encodeCells(100, 0, -9999, 250, 30, 7))

	header, data, err := extractSWE(bytes.NewReader(archive))
	require.NoError(t, err)
	assert.Equal(t, testHeader, string(header))
	assert.Len(t, data, 12)
}

func TestExtractSWE_ProductMissing(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: "us_ssmv11036tS__T0001TTNATS2024042605HP001.dat.gz",
		Mode: 0o644, Size: 2, Typeflag: tar.TypeReg,
	}))
	_, err := tw.Write([]byte{0, 0})
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	_, _, err = extractSWE(&buf)
	assert.ErrorIs(t, err, ErrProductMissing)
}

func TestClient_ArchiveURL(t *testing.T) {
	c := testClient(t, "https://example.org/masked")
	date := time.Date(2024, 4, 26, 0, 0, 0, 0, time.UTC)
	assert.Equal(t,
		"https://example.org/masked/2024/04_Apr/SNODAS_20240426.tar",
		c.archiveURL(date))
}

func TestClient_Fetch(t *testing.T) {
	archive := buildArchive(t, testHeader, encodeCells(100, 0, -9999, 250, 30, 7))
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write(archive)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	date := time.Date(2024, 4, 26, 0, 0, 0, 0, time.UTC)

	pair, err := c.Fetch(context.Background(), date)
	require.NoError(t, err)
	assert.Equal(t, "/2024/04_Apr/SNODAS_20240426.tar", gotPath)

	assert.Equal(t, 2, pair.SWE.Rows())
	assert.Equal(t, 3, pair.SWE.Cols())

	v, ok := pair.SWE.Value(1, 0)
	require.True(t, ok)
	assert.Equal(t, 250.0, v)

	// Snow cover: 1 where SWE > 0, 0 where bare, nodata carried through.
	cv, ok := pair.SnowCover.Value(0, 0)
	require.True(t, ok)
	assert.Equal(t, 1.0, cv)
	cv, ok = pair.SnowCover.Value(0, 1)
	require.True(t, ok)
	assert.Equal(t, 0.0, cv)
	_, ok = pair.SnowCover.Value(0, 2)
	assert.False(t, ok)
}

func TestClient_FetchMissingDate(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.Fetch(context.Background(), time.Date(2024, 4, 26, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrArchiveMissing)
	// 404 is permanent, not retried.
	assert.Equal(t, 1, requests)
}

func TestClient_FetchRetriesTransientFailure(t *testing.T) {
	archive := buildArchive(t, testHeader, encodeCells(100, 0, -9999, 250, 30, 7))
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		w.Write(archive)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.Fetch(context.Background(), time.Date(2024, 4, 26, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, requests)
}

func TestClient_ClipExtent(t *testing.T) {
	archive := buildArchive(t, testHeader, encodeCells(100, 0, -9999, 250, 30, 7))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer srv.Close()

	cfg := &config.Config{
		SnodasBaseURL: srv.URL,
		SnodasTimeout: 5 * time.Second,
		WorkDir:       t.TempDir(),
		CellSize:      1000,
		ClipXMin:      1000, ClipYMin: 0, ClipXMax: 3000, ClipYMax: 2000,
	}
	c, err := NewClient(cfg, nil, slog.New(slog.NewTextHandler(io.Discard, nil)),
		observability.NewMetricsForTesting())
	require.NoError(t, err)

	pair, err := c.Fetch(context.Background(), time.Date(2024, 4, 26, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, 2, pair.SWE.Rows())
	assert.Equal(t, 2, pair.SWE.Cols())
	assert.Equal(t, 1000.0, pair.SWE.X0)

	v, ok := pair.SWE.Value(1, 0)
	require.True(t, ok)
	assert.Equal(t, 30.0, v)
}

func TestWarp_ResamplesOntoFinerGrid(t *testing.T) {
	h, err := parseGridHeader([]byte(testHeader))
	require.NoError(t, err)
	src, err := decodeRaster(h, encodeCells(100, 0, -9999, 250, 30, 7), nil)
	require.NoError(t, err)

	out, err := warp(src, nil, 0, 0, 3000, 2000, 500)
	require.NoError(t, err)

	assert.Equal(t, 4, out.Rows())
	assert.Equal(t, 6, out.Cols())

	// Each source cell becomes a 2x2 block.
	v, ok := out.Value(0, 0)
	require.True(t, ok)
	assert.Equal(t, 100.0, v)
	v, ok = out.Value(3, 5)
	require.True(t, ok)
	assert.Equal(t, 7.0, v)
	_, ok = out.Value(0, 4)
	assert.False(t, ok)
}
