// Package fixture writes zipped shapefile bundles shaped like NOAA HMS
// archives. It backs the test suites and cmd/genfixture.
package fixture

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jonas-p/go-shp"
	"github.com/klauspost/compress/zip"
	"github.com/paulmach/orb"
)

// WKT1 projection definitions as they appear in HMS and Census .prj files.
const (
	PRJWGS84       = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`
	PRJNAD83       = `GEOGCS["GCS_North_American_1983",DATUM["D_North_American_1983",SPHEROID["GRS_1980",6378137.0,298.257222101]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`
	PRJWebMercator = `PROJCS["WGS_1984_Web_Mercator_Auxiliary_Sphere",GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]],PROJECTION["Mercator_Auxiliary_Sphere"],PARAMETER["False_Easting",0.0],PARAMETER["False_Northing",0.0],PARAMETER["Central_Meridian",0.0],PARAMETER["Standard_Parallel_1",0.0],PARAMETER["Auxiliary_Sphere_Type",0.0],UNIT["Meter",1.0]]`
)

// Row is one shapefile record: a geometry and its attribute values in
// field order. Values are formatted with fmt.Sprint; nil leaves the cell blank.
type Row struct {
	Geometry orb.Geometry
	Values   []any
}

// Layer describes a single-layer shapefile.
type Layer struct {
	// Name is the base file name without extension, e.g. "hms_smoke20240810".
	Name   string
	Fields []shp.Field
	Rows   []Row
	// PRJ is written as Name.prj when non-empty.
	PRJ string
}

// StringField declares a character DBF column.
func StringField(name string, size uint8) shp.Field { return shp.StringField(name, size) }

// FloatField declares a numeric DBF column with decimals.
func FloatField(name string) shp.Field { return shp.FloatField(name, 16, 4) }

// WriteShapefile writes the layer's .shp, .shx, .dbf, and optional .prj into
// dir and returns the .shp path.
func (l Layer) WriteShapefile(dir string) (string, error) {
	if len(l.Rows) == 0 {
		return "", fmt.Errorf("layer %s has no rows", l.Name)
	}
	shapeType, err := typeOf(l.Rows[0].Geometry)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, l.Name+".shp")
	w, err := shp.Create(path, shapeType)
	if err != nil {
		return "", fmt.Errorf("create shapefile: %w", err)
	}
	fields := l.Fields
	if len(fields) == 0 {
		// The reader requires a .dbf.
		fields = []shp.Field{shp.NumberField("ID", 10)}
	}
	w.SetFields(fields)

	for _, row := range l.Rows {
		s, err := toShape(row.Geometry)
		if err != nil {
			w.Close()
			return "", err
		}
		n := w.Write(s)
		for i := range fields {
			// Blank cells decode as missing values.
			value := " "
			if i < len(row.Values) && row.Values[i] != nil {
				value = fmt.Sprint(row.Values[i])
			}
			w.WriteAttribute(int(n), i, value)
		}
	}
	w.Close()

	if l.PRJ != "" {
		if err := os.WriteFile(filepath.Join(dir, l.Name+".prj"), []byte(l.PRJ), 0o600); err != nil {
			return "", fmt.Errorf("write prj: %w", err)
		}
	}
	return path, nil
}

// Zip writes the layer's shapefile set and returns it as a zip archive.
func (l Layer) Zip() ([]byte, error) {
	dir, err := os.MkdirTemp("", "hms-fixture-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	if _, err := l.WriteShapefile(dir); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read temp dir: %w", err)
	}
	files := make(map[string][]byte, len(entries))
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		files[e.Name()] = data
	}
	return Zip(files)
}

// Zip packs named files into a zip archive, ordered by name.
func Zip(files map[string][]byte) ([]byte, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("create zip entry %s: %w", name, err)
		}
		if _, err := w.Write(files[name]); err != nil {
			return nil, fmt.Errorf("write zip entry %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

func typeOf(g orb.Geometry) (shp.ShapeType, error) {
	switch g.(type) {
	case orb.Point:
		return shp.POINT, nil
	case orb.MultiPoint:
		return shp.MULTIPOINT, nil
	case orb.LineString, orb.MultiLineString:
		return shp.POLYLINE, nil
	case orb.Polygon, orb.MultiPolygon, orb.Bound:
		return shp.POLYGON, nil
	default:
		return 0, fmt.Errorf("unsupported fixture geometry %T", g)
	}
}

func toShape(g orb.Geometry) (shp.Shape, error) {
	switch v := g.(type) {
	case orb.Point:
		return &shp.Point{X: v[0], Y: v[1]}, nil
	case orb.MultiPoint:
		pts := make([]shp.Point, len(v))
		for i, p := range v {
			pts[i] = shp.Point{X: p[0], Y: p[1]}
		}
		box := shp.BBoxFromPoints(pts)
		return &shp.MultiPoint{Box: box, NumPoints: int32(len(pts)), Points: pts}, nil
	case orb.LineString:
		return shp.NewPolyLine([][]shp.Point{points(v)}), nil
	case orb.MultiLineString:
		parts := make([][]shp.Point, len(v))
		for i, ls := range v {
			parts[i] = points(ls)
		}
		return shp.NewPolyLine(parts), nil
	case orb.Bound:
		return toShape(v.ToPolygon())
	case orb.Polygon:
		return polygonShape(orb.MultiPolygon{v}), nil
	case orb.MultiPolygon:
		return polygonShape(v), nil
	default:
		return nil, fmt.Errorf("unsupported fixture geometry %T", g)
	}
}

// polygonShape writes outer rings clockwise and holes counter-clockwise,
// the shapefile ring convention.
func polygonShape(mp orb.MultiPolygon) *shp.Polygon {
	var parts [][]shp.Point
	for _, poly := range mp {
		for i, ring := range poly {
			want := orb.CCW
			if i == 0 {
				want = orb.CW
			}
			r := ring.Clone()
			if r.Orientation() != want {
				r.Reverse()
			}
			parts = append(parts, points(r))
		}
	}
	pl := shp.NewPolyLine(parts)
	p := shp.Polygon(*pl)
	return &p
}

func points[T ~[]orb.Point](ls T) []shp.Point {
	out := make([]shp.Point, len(ls))
	for i, p := range ls {
		out[i] = shp.Point{X: p[0], Y: p[1]}
	}
	return out
}
