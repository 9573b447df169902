// Package domain models NOAA Hazard Mapping System (HMS) wildfire products.
//
// # Data Source
//
// HMS analysts publish two products per UTC day as zipped ESRI shapefiles:
//
//	Smoke polygons: .../HMS/Smoke_Polygons/Shapefile/YYYY/MM/hms_smokeYYYYMMDD.zip
//	Fire points:    .../HMS/Fire_Points/Shapefile//YYYY/MM/hms_fireYYYYMMDD.zip
//
// The fire path carries a doubled separator before the year. The upstream
// server accepts it and the URL is reproduced byte-for-byte; see [URLBuilder].
//
// # Smoke Density
//
// Each smoke polygon carries a qualitative "Density" attribute: "Light",
// "Medium", or "Heavy". Polygons are dissolved per density value and each
// resulting row is given a [StyleDescriptor] from [StyleFor]. Unknown or empty
// densities map to the translucent default style.
//
// # Coordinate Reference Systems
//
// All output is in [WorkingCRS] (EPSG:4326, lon/lat). HMS archives are
// published in WGS84 geographic coordinates; the TIGER/Line state boundary is
// NAD83 (EPSG:4269), which is treated as equivalent to WGS84 at the
// resolution of the smoke analysis.
//
// # Date Ranges
//
// A handler covers a fixed run of consecutive days counting backwards from a
// start date (default: yesterday in UTC). See [DateRange] and [Span].
package domain
