package archive

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/couchcryptid/hms-wildfire-etl/internal/domain"
	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// readShapefile loads every non-null record of a shapefile with its DBF
// attributes. A record that fails to decode fails the whole file. The
// returned dataset has no CRS; the caller reads the .prj.
func readShapefile(path string) (domain.Dataset, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("open shapefile: %w", err)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = fieldName(f)
	}

	ds := domain.Dataset{Fields: names}
	for reader.Next() {
		_, shape := reader.Shape()
		g := shapeToGeometry(shape)
		if g == nil {
			continue
		}

		f := geojson.NewFeature(g)
		for i, field := range fields {
			f.Properties[names[i]] = attributeValue(field, reader.Attribute(i))
		}
		ds.Features = append(ds.Features, f)
	}
	// Next stops on a decode error as well as at end of file.
	if err := reader.Err(); err != nil {
		return domain.Dataset{}, fmt.Errorf("read shapefile: %w", err)
	}
	return ds, nil
}

// fieldName returns the DBF field name without NUL padding.
func fieldName(f shp.Field) string {
	return strings.TrimSpace(strings.TrimRight(f.String(), "\x00"))
}

// attributeValue decodes numeric DBF columns to float64 and leaves everything
// else as a trimmed string. Empty numeric values decode to nil.
func attributeValue(f shp.Field, raw string) any {
	raw = strings.TrimSpace(strings.TrimRight(raw, "\x00"))
	switch f.Fieldtype {
	case 'N', 'F':
		if raw == "" {
			return nil
		}
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	}
	return raw
}

// shapeToGeometry converts a shapefile record to an orb geometry. Null and
// unsupported record types convert to nil.
func shapeToGeometry(s shp.Shape) orb.Geometry {
	switch shape := s.(type) {
	case *shp.Point:
		return orb.Point{shape.X, shape.Y}
	case *shp.MultiPoint:
		if len(shape.Points) == 0 {
			return nil
		}
		mp := make(orb.MultiPoint, len(shape.Points))
		for i, p := range shape.Points {
			mp[i] = orb.Point{p.X, p.Y}
		}
		return mp
	case *shp.PolyLine:
		parts := splitParts(shape.Parts, shape.Points)
		ml := make(orb.MultiLineString, 0, len(parts))
		for _, part := range parts {
			if len(part) >= 2 {
				ml = append(ml, orb.LineString(part))
			}
		}
		switch len(ml) {
		case 0:
			return nil
		case 1:
			return ml[0]
		}
		return ml
	case *shp.Polygon:
		parts := splitParts(shape.Parts, shape.Points)
		rings := make([]orb.Ring, 0, len(parts))
		for _, part := range parts {
			rings = append(rings, orb.Ring(part))
		}
		mp := assemblePolygons(rings)
		switch len(mp) {
		case 0:
			return nil
		case 1:
			return mp[0]
		}
		return mp
	default:
		return nil
	}
}

// splitParts slices a flat point array at the part offsets.
func splitParts(parts []int32, points []shp.Point) [][]orb.Point {
	out := make([][]orb.Point, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start > end || int(end) > len(points) {
			continue
		}
		part := make([]orb.Point, 0, end-start)
		for _, p := range points[start:end] {
			part = append(part, orb.Point{p.X, p.Y})
		}
		out = append(out, part)
	}
	return out
}

// assemblePolygons groups shapefile rings into polygons. Clockwise rings are
// outer rings; counter-clockwise rings are holes of the outer ring that
// contains them, or standalone polygons when no outer ring does.
func assemblePolygons(rings []orb.Ring) orb.MultiPolygon {
	var mp orb.MultiPolygon
	var holes []orb.Ring
	for _, r := range rings {
		if len(r) < 4 {
			continue
		}
		if r.Orientation() == orb.CW {
			mp = append(mp, orb.Polygon{r})
		} else {
			holes = append(holes, r)
		}
	}

	for _, h := range holes {
		placed := false
		for i := range mp {
			if planar.RingContains(mp[i][0], h[0]) {
				mp[i] = append(mp[i], h)
				placed = true
				break
			}
		}
		if !placed {
			mp = append(mp, orb.Polygon{h})
		}
	}
	return mp
}
