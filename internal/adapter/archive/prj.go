package archive

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/couchcryptid/hms-wildfire-etl/internal/domain"
)

// topAuthorityRe matches an EPSG authority that closes the outermost WKT
// node, e.g. `...,AUTHORITY["EPSG","4326"]]`. Authorities on nested nodes
// such as UNIT are followed by further brackets and do not match.
var topAuthorityRe = regexp.MustCompile(`AUTHORITY\[\s*"EPSG"\s*,\s*"?(\d+)"?\s*\]\s*\]\s*$`)

// ParseCRS identifies the coordinate reference system described by the WKT1
// contents of a .prj file. ESRI-flavoured WKT without authorities is matched
// by datum and projection name.
func ParseCRS(wkt string) (domain.CRS, error) {
	wkt = strings.TrimSpace(wkt)
	if wkt == "" {
		return "", fmt.Errorf("%w: empty projection definition", domain.ErrReprojection)
	}

	if m := topAuthorityRe.FindStringSubmatch(wkt); len(m) == 2 {
		return domain.CRS("EPSG:" + m[1]), nil
	}

	upper := strings.ToUpper(wkt)
	switch {
	case strings.HasPrefix(upper, "PROJCS["):
		if strings.Contains(upper, "MERCATOR_AUXILIARY_SPHERE") ||
			strings.Contains(upper, "PSEUDO-MERCATOR") ||
			strings.Contains(upper, "WEB_MERCATOR") {
			return domain.WebMercator, nil
		}
	case strings.HasPrefix(upper, "GEOGCS["):
		// NAD83 first: its WKT may carry a TOWGS84 clause.
		switch {
		case strings.Contains(upper, "NORTH_AMERICAN_1983") || strings.Contains(upper, "NORTH AMERICAN DATUM 1983") || strings.Contains(upper, "NAD83"):
			return domain.NAD83, nil
		case strings.Contains(upper, "WGS_1984") || strings.Contains(upper, "WGS 84") || strings.Contains(upper, "WGS84"):
			return domain.WGS84, nil
		}
	}

	return "", fmt.Errorf("%w: unrecognized projection %.60q", domain.ErrReprojection, wkt)
}
