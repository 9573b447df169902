package spatial

import (
	"fmt"

	"github.com/couchcryptid/hms-wildfire-etl/internal/domain"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"
)

// toWGS84 lists the source systems that can be brought into EPSG:4326. A nil
// projection means coordinates are used as-is: NAD83 and WGS84 differ by
// less than a metre across CONUS.
var toWGS84 = map[domain.CRS]orb.Projection{
	domain.WGS84:       nil,
	domain.NAD83:       nil,
	domain.WebMercator: project.Mercator.ToWGS84,
}

// Reproject returns ds expressed in target. The input is never mutated; when
// no coordinate change is needed the features are shared.
func Reproject(ds domain.Dataset, target domain.CRS) (domain.Dataset, error) {
	if target != domain.WGS84 {
		return domain.Dataset{}, fmt.Errorf("%w: unsupported target %s", domain.ErrReprojection, target)
	}
	if ds.CRS == "" {
		return domain.Dataset{}, fmt.Errorf("%w: source CRS is not declared", domain.ErrReprojection)
	}
	proj, ok := toWGS84[ds.CRS]
	if !ok {
		return domain.Dataset{}, fmt.Errorf("%w: no transform from %s to %s", domain.ErrReprojection, ds.CRS, target)
	}

	out := domain.Dataset{CRS: target, Fields: ds.Fields}
	if proj == nil {
		out.Features = ds.Features
		return out, nil
	}

	out.Features = make([]*geojson.Feature, 0, len(ds.Features))
	for _, f := range ds.Features {
		nf := geojson.NewFeature(project.Geometry(orb.Clone(f.Geometry), proj))
		nf.ID = f.ID
		nf.Properties = f.Properties.Clone()
		out.Features = append(out.Features, nf)
	}
	return out, nil
}
