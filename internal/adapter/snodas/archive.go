// Package snodas acquires and decodes the daily SNODAS masked-CONUS
// archives: download, tar member extraction, flat-binary raster decoding,
// and preparation (warp and clip) onto the analysis grid.
package snodas

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Product code 1034 is snow water equivalent. The other members of the
// daily archive (depth, melt, sublimation) are not consumed.
const sweProductCode = "1034"

// ErrProductMissing reports an archive that downloaded fine but does not
// contain the SWE product pair.
var ErrProductMissing = errors.New("snodas: swe product not found in archive")

// extractSWE scans a SNODAS daily tar stream and returns the decompressed
// SWE header (.txt) and data (.dat) members.
func extractSWE(r io.Reader) (header, data []byte, err error) {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := hdr.Name
		if !strings.Contains(name, "ssmv1"+sweProductCode) {
			continue
		}
		switch {
		case strings.HasSuffix(name, ".txt.gz"):
			header, err = gunzip(tr)
		case strings.HasSuffix(name, ".dat.gz"):
			data, err = gunzip(tr)
		case strings.HasSuffix(name, ".txt"):
			header, err = io.ReadAll(tr)
		case strings.HasSuffix(name, ".dat"):
			data, err = io.ReadAll(tr)
		default:
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("extracting %s: %w", name, err)
		}
	}
	if header == nil || data == nil {
		return nil, nil, ErrProductMissing
	}
	return header, data, nil
}

func gunzip(r io.Reader) ([]byte, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer gz.Close()
	return io.ReadAll(gz)
}
