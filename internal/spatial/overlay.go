package spatial

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/peterstace/simplefeatures/geom"
)

// orb carries the data model and GeoJSON; simplefeatures provides the polygon
// overlay engine. WKB is the bridge between the two.

func toOverlay(g orb.Geometry) (geom.Geometry, error) {
	data, err := wkb.Marshal(g)
	if err != nil {
		return geom.Geometry{}, fmt.Errorf("encode wkb: %w", err)
	}
	// Upstream plumes are hand drawn and often self-intersecting. The overlay
	// is attempted on them as-is; a failure surfaces from the operation.
	sg, err := geom.UnmarshalWKB(data, geom.NoValidate{})
	if err != nil {
		return geom.Geometry{}, fmt.Errorf("decode overlay geometry: %w", err)
	}
	return sg, nil
}

// fromOverlay converts back to orb. An empty geometry converts to nil.
func fromOverlay(g geom.Geometry) (orb.Geometry, error) {
	if g.IsEmpty() {
		return nil, nil
	}
	og, err := wkb.Unmarshal(g.AsBinary())
	if err != nil {
		return nil, fmt.Errorf("decode wkb: %w", err)
	}
	return og, nil
}

// unionAll merges geometries with a balanced pairwise reduction, which keeps
// intermediate results small compared with a left fold.
func unionAll(gs []geom.Geometry) (geom.Geometry, error) {
	switch len(gs) {
	case 0:
		return geom.Geometry{}, nil
	case 1:
		return gs[0], nil
	}
	mid := len(gs) / 2
	left, err := unionAll(gs[:mid])
	if err != nil {
		return geom.Geometry{}, err
	}
	right, err := unionAll(gs[mid:])
	if err != nil {
		return geom.Geometry{}, err
	}
	return geom.Union(left, right)
}

// polygonal extracts the areal part of g as a MultiPolygon. Overlay results
// can be collections that mix polygons with degenerate lines or points where
// inputs share an edge or vertex.
func polygonal(g orb.Geometry) orb.MultiPolygon {
	var mp orb.MultiPolygon
	switch v := g.(type) {
	case orb.Polygon:
		mp = append(mp, v)
	case orb.MultiPolygon:
		mp = append(mp, v...)
	case orb.Collection:
		for _, c := range v {
			mp = append(mp, polygonal(c)...)
		}
	}
	return mp
}

// lineal extracts the linear part of g as a MultiLineString.
func lineal(g orb.Geometry) orb.MultiLineString {
	var ml orb.MultiLineString
	switch v := g.(type) {
	case orb.LineString:
		ml = append(ml, v)
	case orb.MultiLineString:
		ml = append(ml, v...)
	case orb.Collection:
		for _, c := range v {
			ml = append(ml, lineal(c)...)
		}
	}
	return ml
}

// sameDimension narrows an overlay result to the dimension of the input so a
// clipped polygon stays areal. Returns nil when nothing of that dimension remains.
func sameDimension(result orb.Geometry, dim int) orb.Geometry {
	if result == nil {
		return nil
	}
	switch dim {
	case 2:
		mp := polygonal(result)
		switch len(mp) {
		case 0:
			return nil
		case 1:
			return mp[0]
		}
		return mp
	case 1:
		ml := lineal(result)
		switch len(ml) {
		case 0:
			return nil
		case 1:
			return ml[0]
		}
		return ml
	}
	return result
}
