// Package basin loads the drainage basin boundary layer from an ESRI
// shapefile and exposes it as an in-memory registry. The layer is read once
// at startup; every processing date iterates the same immutable set.
package basin

import (
	"fmt"
	"os"
	"strings"

	"github.com/ctessum/geom"
	shpgeom "github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"

	"github.com/couchcryptid/snodas-swe-etl/internal/domain"
)

// Registry holds the basin set, the layer's spatial reference, and the raw
// .prj text for passthrough into emitted shapefiles.
type Registry struct {
	basins []domain.Basin
	sr     *proj.SR
	prjWKT string
}

// Load reads the shapefile at path. The idField attribute is required on
// every row; nameField is optional and falls back to the ID when the field
// is absent from the layer or blank on a row.
func Load(path, idField, nameField string) (*Registry, error) {
	dec, err := shpgeom.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("opening basin layer %s: %w", path, err)
	}
	defer dec.Close()

	hasName := hasField(dec, nameField)
	fieldNames := []string{idField}
	if hasName {
		fieldNames = append(fieldNames, nameField)
	}

	reg := &Registry{}
	for {
		g, fields, more := dec.DecodeRowFields(fieldNames...)
		if !more {
			break
		}
		poly, ok := g.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("basin layer %s: row %d is not a polygon: %w",
				path, len(reg.basins), domain.ErrInvalidLayer)
		}
		id := strings.TrimSpace(fields[idField])
		if id == "" {
			return nil, fmt.Errorf("basin layer %s: row %d has no %s value: %w",
				path, len(reg.basins), idField, domain.ErrInvalidLayer)
		}
		name := id
		if hasName {
			if n := strings.TrimSpace(fields[nameField]); n != "" {
				name = n
			}
		}
		reg.basins = append(reg.basins, domain.Basin{ID: id, Name: name, Geom: poly})
	}
	if err := dec.Error(); err != nil {
		return nil, fmt.Errorf("reading basin layer %s: %w", path, err)
	}
	if len(reg.basins) == 0 {
		return nil, fmt.Errorf("basin layer %s has no features: %w", path, domain.ErrInvalidLayer)
	}

	// The .prj sidecar is optional; without it the layer carries no spatial
	// reference and rasters must match that.
	if wkt, err := os.ReadFile(strings.TrimSuffix(path, ".shp") + ".prj"); err == nil {
		reg.prjWKT = string(wkt)
		sr, err := proj.Parse(reg.prjWKT)
		if err != nil {
			return nil, fmt.Errorf("parsing projection for %s: %w", path, err)
		}
		reg.sr = sr
	}

	return reg, nil
}

func hasField(dec *shpgeom.Decoder, name string) bool {
	if name == "" {
		return false
	}
	for _, f := range dec.Fields() {
		if strings.EqualFold(f.String(), name) {
			return true
		}
	}
	return false
}

// ForEach calls fn for every basin in layer order, stopping at the first
// error. Safe to call repeatedly.
func (r *Registry) ForEach(fn func(domain.Basin) error) error {
	for _, b := range r.basins {
		if err := fn(b); err != nil {
			return err
		}
	}
	return nil
}

// Basins returns the loaded basin set in layer order.
func (r *Registry) Basins() []domain.Basin {
	return r.basins
}

// Len returns the number of basins in the layer.
func (r *Registry) Len() int {
	return len(r.basins)
}

// SR returns the layer's spatial reference, nil when no .prj was present.
func (r *Registry) SR() *proj.SR {
	return r.sr
}

// PrjWKT returns the raw .prj contents for passthrough into emitted
// shapefiles, empty when no .prj was present.
func (r *Registry) PrjWKT() string {
	return r.prjWKT
}
