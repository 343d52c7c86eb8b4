package store

import (
	goshp "github.com/jonas-p/go-shp"

	"github.com/couchcryptid/snodas-swe-etl/internal/domain"
)

// Published column names. CSV and GeoJSON carry the long names; the
// shapefile DBF format caps field names at 10 bytes, so geometry outputs
// use the short aliases below for the same columns.
const (
	colDate       = "Date_YYYYMMDD"
	colMeanIn     = "SNODAS_SWE_Mean_in"
	colMeanMM     = "SNODAS_SWE_Mean_mm"
	colArea       = "SNODAS_EffectiveArea_sqmi"
	colVolume     = "SNODAS_SWE_Volume_acft"
	colWeekChange = "SNODAS_SWE_Volume_1WeekChange_acft"
	colSnowCover  = "SNODAS_SnowCover_percent"
	colUpdated    = "Updated_Timestamp"
	colMaxIn      = "SNODAS_SWE_Max_in"
	colMaxMM      = "SNODAS_SWE_Max_mm"
	colMinIn      = "SNODAS_SWE_Min_in"
	colMinMM      = "SNODAS_SWE_Min_mm"
	colStdDevIn   = "SNODAS_SWE_StdDev_in"
	colStdDevMM   = "SNODAS_SWE_StdDev_mm"
)

// DBF aliases, 10 bytes or fewer.
const (
	dbfDate       = "Date"
	dbfName       = "LOCAL_NAME"
	dbfMeanIn     = "SWEMean_in"
	dbfMeanMM     = "SWEMean_mm"
	dbfArea       = "Area_sqmi"
	dbfVolume     = "SWEVol_af"
	dbfWeekChange = "SWEVolC_af"
	dbfSnowCover  = "SnowCov_pc"
	dbfUpdated    = "Updated"
	dbfMaxIn      = "SWEMax_in"
	dbfMaxMM      = "SWEMax_mm"
	dbfMinIn      = "SWEMin_in"
	dbfMinMM      = "SWEMin_mm"
	dbfStdDevIn   = "SWESDev_in"
	dbfStdDevMM   = "SWESDev_mm"
)

// Schema fixes the column set for every table the store writes. The ID and
// name headers come from the basin layer's configured field names; the three
// optional flags append their column pairs in Max, Min, StdDev order.
type Schema struct {
	IDField   string
	NameField string
	Optional  domain.OptionalStats
}

// ColumnNames returns the CSV header in publication order.
func (s Schema) ColumnNames() []string {
	cols := []string{
		colDate, s.IDField, s.NameField,
		colMeanIn, colMeanMM, colArea, colVolume, colWeekChange, colSnowCover,
		colUpdated,
	}
	if s.Optional.Max {
		cols = append(cols, colMaxIn, colMaxMM)
	}
	if s.Optional.Min {
		cols = append(cols, colMinIn, colMinMM)
	}
	if s.Optional.StdDev {
		cols = append(cols, colStdDevIn, colStdDevMM)
	}
	return cols
}

// ShapefileFields returns the DBF field set matching ColumnNames. The
// week-change column is a string field so a missing value stays blank
// instead of becoming a zero.
func (s Schema) ShapefileFields() []goshp.Field {
	idField := s.IDField
	if len(idField) > 10 {
		idField = idField[:10]
	}
	fields := []goshp.Field{
		goshp.StringField(dbfDate, 8),
		goshp.StringField(idField, 16),
		goshp.StringField(dbfName, 50),
		goshp.FloatField(dbfMeanIn, 12, 1),
		goshp.FloatField(dbfMeanMM, 12, 0),
		goshp.FloatField(dbfArea, 12, 1),
		goshp.FloatField(dbfVolume, 14, 0),
		goshp.StringField(dbfWeekChange, 16),
		goshp.FloatField(dbfSnowCover, 8, 2),
		goshp.StringField(dbfUpdated, 25),
	}
	if s.Optional.Max {
		fields = append(fields,
			goshp.FloatField(dbfMaxIn, 12, 1), goshp.FloatField(dbfMaxMM, 12, 0))
	}
	if s.Optional.Min {
		fields = append(fields,
			goshp.FloatField(dbfMinIn, 12, 1), goshp.FloatField(dbfMinMM, 12, 0))
	}
	if s.Optional.StdDev {
		fields = append(fields,
			goshp.FloatField(dbfStdDevIn, 12, 1), goshp.FloatField(dbfStdDevMM, 12, 0))
	}
	return fields
}
