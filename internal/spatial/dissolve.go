package spatial

import (
	"fmt"
	"sort"

	"github.com/couchcryptid/hms-wildfire-etl/internal/domain"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/peterstace/simplefeatures/geom"
)

// DissolveAll unions every feature geometry in ds into one geometry.
func DissolveAll(ds domain.Dataset) (orb.Geometry, error) {
	parts := make([]geom.Geometry, 0, len(ds.Features))
	for i, f := range ds.Features {
		if f.Geometry == nil {
			continue
		}
		sg, err := toOverlay(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("dissolve feature %d: %w", i, err)
		}
		parts = append(parts, sg)
	}
	merged, err := unionAll(parts)
	if err != nil {
		return nil, fmt.Errorf("dissolve: %w", err)
	}
	return fromOverlay(merged)
}

// DissolveBy merges features that share a value of field into one row per
// value. Rows are sorted by value; a missing value groups under "". Each row
// keeps the attributes of the first feature in its group, and areal results
// are always MultiPolygons.
func DissolveBy(ds domain.Dataset, field string) (domain.Dataset, error) {
	groups := make(map[string][]*geojson.Feature)
	for _, f := range ds.Features {
		key := groupKey(f.Properties[field])
		groups[key] = append(groups[key], f)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := domain.Dataset{
		CRS:      ds.CRS,
		Fields:   ds.Fields,
		Features: make([]*geojson.Feature, 0, len(keys)),
	}
	for _, key := range keys {
		members := groups[key]
		merged, err := DissolveAll(domain.Dataset{Features: members})
		if err != nil {
			return domain.Dataset{}, fmt.Errorf("dissolve %s=%q: %w", field, key, err)
		}
		if merged == nil {
			continue
		}
		if merged.Dimensions() == 2 {
			merged = polygonal(merged)
		}
		nf := geojson.NewFeature(merged)
		nf.Properties = members[0].Properties.Clone()
		out.Features = append(out.Features, nf)
	}
	return out, nil
}

func groupKey(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
