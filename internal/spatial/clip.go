package spatial

import (
	"errors"
	"fmt"

	"github.com/couchcryptid/hms-wildfire-etl/internal/domain"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/peterstace/simplefeatures/geom"
)

// ClipStats summarizes one Clip call.
type ClipStats struct {
	Kept    int // features with some part inside the boundary
	Outside int // features entirely outside the boundary
}

// Clip keeps the parts of each feature that fall inside b. Features entirely
// outside are dropped along with their attributes; features that straddle the
// edge are cut to the intersection. An empty result is valid. A feature the
// overlay cannot resolve fails the whole dataset with domain.ErrGeometry
// rather than being dropped.
func Clip(ds domain.Dataset, b *Boundary) (domain.Dataset, ClipStats, error) {
	out := domain.Dataset{
		CRS:      ds.CRS,
		Fields:   ds.Fields,
		Features: make([]*geojson.Feature, 0, len(ds.Features)),
	}
	var stats ClipStats

	for i, f := range ds.Features {
		g, err := b.clip(f.Geometry)
		if err != nil {
			return domain.Dataset{}, ClipStats{}, fmt.Errorf("%w: clip feature %d: %w", domain.ErrGeometry, i, err)
		}
		if g == nil {
			stats.Outside++
			continue
		}
		nf := geojson.NewFeature(g)
		nf.ID = f.ID
		nf.Properties = f.Properties.Clone()
		out.Features = append(out.Features, nf)
		stats.Kept++
	}
	return out, stats, nil
}

// Process brings ds into the working CRS and clips it to b.
func Process(ds domain.Dataset, b *Boundary) (domain.Dataset, ClipStats, error) {
	projected, err := Reproject(ds, domain.WorkingCRS)
	if err != nil {
		return domain.Dataset{}, ClipStats{}, err
	}
	return Clip(projected, b)
}

var errLostInterior = errors.New("overlay returned nothing for a geometry with a vertex inside the boundary")

// clip returns the part of g inside the boundary, or nil if none.
func (b *Boundary) clip(g orb.Geometry) (orb.Geometry, error) {
	if g == nil {
		return nil, nil
	}

	switch v := g.(type) {
	case orb.Point:
		if b.Contains(v) {
			return v, nil
		}
		return nil, nil
	case orb.MultiPoint:
		var kept orb.MultiPoint
		for _, p := range v {
			if b.Contains(p) {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			return nil, nil
		}
		return kept, nil
	}

	if !b.bound.Intersects(g.Bound()) {
		return nil, nil
	}

	sg, err := toOverlay(g)
	if err != nil {
		return nil, err
	}
	inter, err := geom.Intersection(sg, b.overlay)
	if err != nil {
		return nil, err
	}
	result, err := fromOverlay(inter)
	if err != nil {
		return nil, err
	}
	kept := sameDimension(result, g.Dimensions())
	if kept == nil && b.hasInteriorVertex(g) {
		return nil, errLostInterior
	}
	return kept, nil
}
