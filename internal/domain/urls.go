package domain

import (
	"fmt"
	"time"
)

// Product identifies which HMS archive a reference points at.
type Product string

const (
	Smoke    Product = "smoke"
	Fire     Product = "fire"
	Boundary Product = "boundary"
)

// Default upstream locations.
const (
	DefaultSmokeBaseURL = "https://satepsanone.nesdis.noaa.gov/pub/FIRE/web/HMS/Smoke_Polygons/Shapefile/"
	DefaultFireBaseURL  = "https://satepsanone.nesdis.noaa.gov/pub/FIRE/web/HMS/Fire_Points/Shapefile/"
	DefaultBoundaryURL  = "https://www2.census.gov/geo/tiger/TIGER2024/STATE/tl_2024_us_state.zip"
)

// ArchiveReference identifies one compressed bundle, remote or local.
type ArchiveReference struct {
	Product  Product
	Date     time.Time
	Location string
}

// urlTemplates holds the per-product path layout. Arguments are base, year,
// month, and the YYYYMMDD stamp. The fire layout has a separator before the
// year that the smoke layout lacks; both match the published archive.
var urlTemplates = map[Product]string{
	Smoke: "%s%04d/%02d/hms_smoke%s.zip",
	Fire:  "%s/%04d/%02d/hms_fire%s.zip",
}

// URLBuilder maps dates to archive URLs.
type URLBuilder struct {
	SmokeBaseURL string
	FireBaseURL  string
}

// NewURLBuilder creates a URLBuilder, falling back to the NOAA defaults for
// empty bases.
func NewURLBuilder(smokeBase, fireBase string) URLBuilder {
	if smokeBase == "" {
		smokeBase = DefaultSmokeBaseURL
	}
	if fireBase == "" {
		fireBase = DefaultFireBaseURL
	}
	return URLBuilder{SmokeBaseURL: smokeBase, FireBaseURL: fireBase}
}

// Build returns the archive URL for date and product using the date's own
// calendar fields.
func (b URLBuilder) Build(date time.Time, product Product) (string, error) {
	tmpl, ok := urlTemplates[product]
	if !ok {
		return "", fmt.Errorf("no url template for product %q", product)
	}
	base := b.SmokeBaseURL
	if product == Fire {
		base = b.FireBaseURL
	}
	return fmt.Sprintf(tmpl, base, date.Year(), int(date.Month()), date.Format("20060102")), nil
}

// References builds one ArchiveReference per date, preserving order.
func (b URLBuilder) References(dates []time.Time, product Product) ([]ArchiveReference, error) {
	refs := make([]ArchiveReference, 0, len(dates))
	for _, d := range dates {
		loc, err := b.Build(d, product)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ArchiveReference{Product: product, Date: d, Location: loc})
	}
	return refs, nil
}
