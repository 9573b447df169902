package spatial

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/peterstace/simplefeatures/geom"
)

// Boundary is the dissolved clip region in the working CRS. It is immutable
// after construction and safe for concurrent use.
type Boundary struct {
	shape   orb.MultiPolygon
	bound   orb.Bound
	overlay geom.Geometry
}

// NewBoundary builds a Boundary from the areal part of g.
func NewBoundary(g orb.Geometry) (*Boundary, error) {
	mp := polygonal(g)
	if len(mp) == 0 {
		return nil, errors.New("boundary: geometry has no polygons")
	}
	overlay, err := toOverlay(mp)
	if err != nil {
		return nil, fmt.Errorf("boundary: %w", err)
	}
	return &Boundary{
		shape:   orb.Clone(mp).(orb.MultiPolygon),
		bound:   mp.Bound(),
		overlay: overlay,
	}, nil
}

// Geometry returns a copy of the boundary multipolygon.
func (b *Boundary) Geometry() orb.MultiPolygon {
	return orb.Clone(b.shape).(orb.MultiPolygon)
}

// Bound returns the boundary's bounding box.
func (b *Boundary) Bound() orb.Bound {
	return b.bound
}

// Contains reports whether p lies inside the boundary.
func (b *Boundary) Contains(p orb.Point) bool {
	return b.bound.Contains(p) && planar.MultiPolygonContains(b.shape, p)
}

// edgeTolerance separates vertices on the boundary edge from interior ones.
const edgeTolerance = 1e-9

// hasInteriorVertex reports whether any vertex of g lies strictly inside the
// boundary. Such a geometry cannot have an empty intersection with it.
func (b *Boundary) hasInteriorVertex(g orb.Geometry) bool {
	for _, p := range vertices(g) {
		if b.Contains(p) && b.edgeDistance(p) > edgeTolerance {
			return true
		}
	}
	return false
}

func (b *Boundary) edgeDistance(p orb.Point) float64 {
	best := math.Inf(1)
	for _, poly := range b.shape {
		for _, ring := range poly {
			for i := 1; i < len(ring); i++ {
				best = math.Min(best, planar.DistanceFromSegment(ring[i-1], ring[i], p))
			}
		}
	}
	return best
}

func vertices(g orb.Geometry) []orb.Point {
	switch v := g.(type) {
	case orb.Point:
		return []orb.Point{v}
	case orb.MultiPoint:
		return v
	case orb.LineString:
		return v
	case orb.Ring:
		return v
	case orb.MultiLineString:
		var out []orb.Point
		for _, ls := range v {
			out = append(out, ls...)
		}
		return out
	case orb.Polygon:
		var out []orb.Point
		for _, r := range v {
			out = append(out, r...)
		}
		return out
	case orb.MultiPolygon:
		var out []orb.Point
		for _, poly := range v {
			out = append(out, vertices(poly)...)
		}
		return out
	case orb.Collection:
		var out []orb.Point
		for _, c := range v {
			out = append(out, vertices(c)...)
		}
		return out
	}
	return nil
}
