package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
	shpgeom "github.com/ctessum/geom/encoding/shp"
	goshp "github.com/jonas-p/go-shp"

	"github.com/couchcryptid/snodas-swe-etl/internal/domain"
)

// EmitGeometry writes the per-date geometry products: a shapefile and a
// GeoJSON FeatureCollection of the basin polygons with that date's derived
// statistics joined as attributes. Basins without a record for the date are
// left out. prjWKT, when non-empty, is passed through unchanged as the
// shapefile's .prj sidecar.
func (s *Store) EmitGeometry(date time.Time, basins []domain.Basin, recs map[string]domain.DerivedRecord, prjWKT string) error {
	if err := s.emitShapefile(date, basins, recs, prjWKT); err != nil {
		return err
	}
	return s.emitGeoJSON(date, basins, recs)
}

func (s *Store) emitShapefile(date time.Time, basins []domain.Basin, recs map[string]domain.DerivedRecord, prjWKT string) error {
	token := date.Format(domain.DateLayout)
	base := filepath.Join(s.root, byDatePrefix+token)
	tmpBase := filepath.Join(s.root, ".tmp_"+token)

	enc, err := shpgeom.NewEncoderFromFields(tmpBase+".shp", goshp.POLYGON, s.schema.ShapefileFields()...)
	if err != nil {
		return &domain.StoreWriteError{Path: base + ".shp", Err: err}
	}
	// Temp files that made it through the renames below are already gone;
	// anything left is from a failed emission.
	defer func() {
		for _, ext := range []string{".shp", ".shx", ".dbf"} {
			os.Remove(tmpBase + ext)
		}
	}()
	for _, b := range basins {
		rec, ok := recs[b.ID]
		if !ok {
			continue
		}
		if err := enc.EncodeFields(shpGeometry(b.Geom), s.shapefileRow(rec)...); err != nil {
			enc.Close()
			return &domain.StoreWriteError{Path: base + ".shp", Err: err}
		}
	}
	enc.Close()

	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		if err := os.Rename(tmpBase+ext, base+ext); err != nil {
			return &domain.StoreWriteError{Path: base + ext, Err: err}
		}
	}

	if prjWKT != "" {
		err := writeFileAtomic(base+".prj", func(f *os.File) error {
			_, err := f.WriteString(prjWKT)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// shapefileRow matches ShapefileFields order. Nil optionals become blank
// attribute text rather than a fabricated zero.
func (s *Store) shapefileRow(rec domain.DerivedRecord) []interface{} {
	vals := []interface{}{
		rec.Date.Format(domain.DateLayout),
		rec.BasinID,
		rec.BasinName,
		rec.MeanIn,
		rec.MeanMM,
		rec.AreaSqMi,
		rec.VolumeAcFt,
		formatPtr(rec.VolumeChangeAcFt, 0),
		rec.SnowCoverPct,
		rec.UpdatedAt.Format(time.RFC3339),
	}
	opt := s.schema.Optional
	if opt.Max {
		vals = append(vals, blankIfNil(rec.MaxIn), blankIfNil(rec.MaxMM))
	}
	if opt.Min {
		vals = append(vals, blankIfNil(rec.MinIn), blankIfNil(rec.MinMM))
	}
	if opt.StdDev {
		vals = append(vals, blankIfNil(rec.StdDevIn), blankIfNil(rec.StdDevMM))
	}
	return vals
}

// shpGeometry flattens a MultiPolygon into one multi-part Polygon; the
// shapefile POLYGON type carries rings as parts, and the shp encoder has
// no MultiPolygon case.
func shpGeometry(g geom.Polygonal) geom.Geom {
	mp, ok := g.(geom.MultiPolygon)
	if !ok {
		return g
	}
	var flat geom.Polygon
	for _, p := range mp {
		flat = append(flat, p...)
	}
	return flat
}

func blankIfNil(p *float64) interface{} {
	if p == nil {
		return ""
	}
	return *p
}

type geoFeature struct {
	Type       string                 `json:"type"`
	Geometry   *geojson.Geometry      `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type geoCollection struct {
	Type     string       `json:"type"`
	Features []geoFeature `json:"features"`
}

func (s *Store) emitGeoJSON(date time.Time, basins []domain.Basin, recs map[string]domain.DerivedRecord) error {
	path := filepath.Join(s.root, byDatePrefix+date.Format(domain.DateLayout)+".geojson")

	fc := geoCollection{Type: "FeatureCollection"}
	for _, b := range basins {
		rec, ok := recs[b.ID]
		if !ok {
			continue
		}
		g, err := toGeoJSONGeometry(b.Geom)
		if err != nil {
			return &domain.StoreWriteError{Path: path, Err: fmt.Errorf("basin %s: %w", b.ID, err)}
		}
		fc.Features = append(fc.Features, geoFeature{
			Type:       "Feature",
			Geometry:   g,
			Properties: s.geoJSONProperties(rec),
		})
	}

	return writeFileAtomic(path, func(f *os.File) error {
		e := json.NewEncoder(f)
		return e.Encode(fc)
	})
}

// toGeoJSONGeometry handles MultiPolygon itself; the geojson encoder only
// covers single polygons.
func toGeoJSONGeometry(g geom.Geom) (*geojson.Geometry, error) {
	mp, ok := g.(geom.MultiPolygon)
	if !ok {
		return geojson.ToGeoJSON(g)
	}
	coords := make([][][][]float64, len(mp))
	for i, poly := range mp {
		rings := make([][][]float64, len(poly))
		for j, ring := range poly {
			pts := make([][]float64, len(ring))
			for k, pt := range ring {
				pts[k] = []float64{pt.X, pt.Y}
			}
			rings[j] = pts
		}
		coords[i] = rings
	}
	return &geojson.Geometry{Type: "MultiPolygon", Coordinates: coords}, nil
}

// geoJSONProperties uses the long published column names; nil optionals
// become JSON nulls.
func (s *Store) geoJSONProperties(rec domain.DerivedRecord) map[string]interface{} {
	props := map[string]interface{}{
		colDate:            rec.Date.Format(domain.DateLayout),
		s.schema.IDField:   rec.BasinID,
		s.schema.NameField: rec.BasinName,
		colMeanIn:          rec.MeanIn,
		colMeanMM:          rec.MeanMM,
		colArea:            rec.AreaSqMi,
		colVolume:          rec.VolumeAcFt,
		colWeekChange:      nullable(rec.VolumeChangeAcFt),
		colSnowCover:       rec.SnowCoverPct,
		colUpdated:         rec.UpdatedAt.Format(time.RFC3339),
	}
	opt := s.schema.Optional
	if opt.Max {
		props[colMaxIn] = nullable(rec.MaxIn)
		props[colMaxMM] = nullable(rec.MaxMM)
	}
	if opt.Min {
		props[colMinIn] = nullable(rec.MinIn)
		props[colMinMM] = nullable(rec.MinMM)
	}
	if opt.StdDev {
		props[colStdDevIn] = nullable(rec.StdDevIn)
		props[colStdDevMM] = nullable(rec.StdDevMM)
	}
	return props
}

func nullable(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
