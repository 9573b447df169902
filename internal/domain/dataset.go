package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/paulmach/orb/geojson"
)

// CRS is a coordinate reference system identifier such as "EPSG:4326".
type CRS string

const (
	WGS84       CRS = "EPSG:4326"
	NAD83       CRS = "EPSG:4269"
	WebMercator CRS = "EPSG:3857"
)

// WorkingCRS is the coordinate reference system every output is normalized to.
const WorkingCRS = WGS84

// Dataset is a geometry collection with attribute columns, as loaded from a
// shapefile. Fields lists attribute names in file order.
type Dataset struct {
	CRS      CRS
	Fields   []string
	Features []*geojson.Feature
}

// Len returns the number of features.
func (d Dataset) Len() int { return len(d.Features) }

// FeatureCollection wraps the features for GeoJSON encoding. The features are
// shared, not copied.
func (d Dataset) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Features = append(fc.Features, d.Features...)
	return fc
}

// SmokeRecord is one day of dissolved, styled smoke plumes.
type SmokeRecord struct {
	Date    time.Time
	Dataset Dataset
}

// FireRecord is one day of clipped fire detections with the upstream schema.
type FireRecord struct {
	Date    time.Time
	Dataset Dataset
}

// Record is the product-agnostic view of a SmokeRecord or FireRecord used by sinks.
type Record struct {
	Product Product
	Date    time.Time
	Dataset Dataset
}

// SmokeRecords converts smoke records to the sink view.
func SmokeRecords(in []SmokeRecord) []Record {
	out := make([]Record, len(in))
	for i, r := range in {
		out[i] = Record{Product: Smoke, Date: r.Date, Dataset: r.Dataset}
	}
	return out
}

// FireRecords converts fire records to the sink view.
func FireRecords(in []FireRecord) []Record {
	out := make([]Record, len(in))
	for i, r := range in {
		out[i] = Record{Product: Fire, Date: r.Date, Dataset: r.Dataset}
	}
	return out
}

// EncodeRecord marshals a record as a GeoJSON FeatureCollection carrying
// product and date as foreign members.
func EncodeRecord(r Record) ([]byte, error) {
	date := r.Date.Format(DateLayout)
	fc := r.Dataset.FeatureCollection()
	fc.ExtraMembers = geojson.Properties{
		"product": string(r.Product),
		"date":    date,
	}
	data, err := json.Marshal(fc)
	if err != nil {
		return nil, fmt.Errorf("serialize %s record %s: %w", r.Product, date, err)
	}
	return data, nil
}
