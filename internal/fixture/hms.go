package fixture

import (
	"fmt"
	"time"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
)

// Plume is one smoke polygon.
type Plume struct {
	Shape   orb.Polygon
	Density string
}

// Detection is one fire hotspot.
type Detection struct {
	Lon, Lat  float64
	Satellite string
	FRP       float64
}

// Region is one boundary polygon.
type Region struct {
	Shape orb.Polygon
	Code  string
	Name  string
}

// Square returns a closed axis-aligned square polygon.
func Square(minX, minY, size float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{minX, minY}, {minX + size, minY}, {minX + size, minY + size}, {minX, minY + size}, {minX, minY},
	}}
}

// SmokeLayer builds an hms_smokeYYYYMMDD layer in WGS84.
func SmokeLayer(date time.Time, plumes []Plume) Layer {
	day := date.Format("20060102")
	l := Layer{
		Name: "hms_smoke" + day,
		Fields: []shp.Field{
			StringField("Satellite", 16),
			StringField("Start", 16),
			StringField("End", 16),
			StringField("Density", 8),
		},
		PRJ: PRJWGS84,
	}
	start := fmt.Sprintf("%d%03d 1200", date.Year(), date.YearDay())
	end := fmt.Sprintf("%d%03d 1800", date.Year(), date.YearDay())
	for _, p := range plumes {
		var density any
		if p.Density != "" {
			density = p.Density
		}
		l.Rows = append(l.Rows, Row{
			Geometry: p.Shape,
			Values:   []any{"GOES-EAST", start, end, density},
		})
	}
	return l
}

// FireLayer builds an hms_fireYYYYMMDD layer in WGS84.
func FireLayer(date time.Time, detections []Detection) Layer {
	day := date.Format("20060102")
	l := Layer{
		Name: "hms_fire" + day,
		Fields: []shp.Field{
			FloatField("Lon"),
			FloatField("Lat"),
			shp.NumberField("YearDay", 8),
			StringField("Time", 4),
			StringField("Satellite", 16),
			StringField("Method", 16),
			FloatField("FRP"),
		},
		PRJ: PRJWGS84,
	}
	yearDay := fmt.Sprintf("%d%03d", date.Year(), date.YearDay())
	for _, d := range detections {
		l.Rows = append(l.Rows, Row{
			Geometry: orb.Point{d.Lon, d.Lat},
			Values:   []any{d.Lon, d.Lat, yearDay, "1830", d.Satellite, "Auto", d.FRP},
		})
	}
	return l
}

// BoundaryLayer builds a Census-style state boundary layer in NAD83.
func BoundaryLayer(regions []Region) Layer {
	l := Layer{
		Name: "cb_2018_us_state_20m",
		Fields: []shp.Field{
			StringField("STATEFP", 2),
			StringField("NAME", 32),
		},
		PRJ: PRJNAD83,
	}
	for _, r := range regions {
		l.Rows = append(l.Rows, Row{Geometry: r.Shape, Values: []any{r.Code, r.Name}})
	}
	return l
}
