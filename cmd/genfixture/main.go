// Command genfixture writes a small local HMS archive tree for development
// and demos. The layout mirrors the NOAA paths, so the service can run
// against it with HMS_SMOKE_BASE_URL, HMS_FIRE_BASE_URL, and HMS_BOUNDARY_URL
// pointing at the output directory.
//
// Usage:
//
//	go run ./cmd/genfixture -out data/fixture -start 2024-08-10 -days 3
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/couchcryptid/hms-wildfire-etl/internal/domain"
	"github.com/couchcryptid/hms-wildfire-etl/internal/fixture"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory")
	startStr := flag.String("start", "2024-08-10", "most recent date (YYYY-MM-DD)")
	days := flag.Int("days", 3, "number of days to generate, counting back from -start")
	flag.Parse()

	if *out == "" || *days < 1 {
		flag.Usage()
		return fmt.Errorf("missing required flags: -out, -days >= 1")
	}
	start, err := domain.ParseDate(*startStr)
	if err != nil {
		return fmt.Errorf("invalid -start: %w", err)
	}

	smokeBase := filepath.Join(*out, "smoke") + string(filepath.Separator)
	fireBase := filepath.Join(*out, "fire")
	urls := domain.NewURLBuilder(smokeBase, fireBase)

	boundaryPath := filepath.Join(*out, "boundary.zip")
	if err := writeLayer(boundaryPath, fixture.BoundaryLayer([]fixture.Region{
		{Shape: fixture.Square(-125, 31, 11), Code: "06", Name: "West"},
		{Shape: fixture.Square(-114, 31, 20), Code: "08", Name: "Mountain"},
		{Shape: fixture.Square(-94, 29, 27), Code: "17", Name: "East"},
	})); err != nil {
		return err
	}
	log.Printf("wrote boundary: %s", boundaryPath)

	for i, d := range domain.DateRange(start, *days) {
		shift := float64(i)
		smoke, err := urls.Build(d, domain.Smoke)
		if err != nil {
			return err
		}
		if err := writeLayer(smoke, fixture.SmokeLayer(d, []fixture.Plume{
			{Shape: fixture.Square(-122+shift, 38, 3), Density: "Heavy"},
			{Shape: fixture.Square(-120+shift, 39, 3), Density: "Heavy"},
			{Shape: fixture.Square(-110, 42+shift, 4), Density: "Medium"},
			{Shape: fixture.Square(-90, 35, 6), Density: "Light"},
			{Shape: fixture.Square(-60, 45, 5), Density: "Light"}, // offshore, clipped away
		})); err != nil {
			return err
		}

		fire, err := urls.Build(d, domain.Fire)
		if err != nil {
			return err
		}
		if err := writeLayer(fire, fixture.FireLayer(d, []fixture.Detection{
			{Lon: -121.5 + shift, Lat: 39.2, Satellite: "GOES-WEST", FRP: 42.5},
			{Lon: -120.8, Lat: 38.7 + shift/10, Satellite: "NOAA-20", FRP: 11.2},
			{Lon: -105.3, Lat: 40.1, Satellite: "GOES-EAST", FRP: 7.9},
			{Lon: -80.2, Lat: 20.5, Satellite: "GOES-EAST", FRP: 3.1}, // outside the boundary
		})); err != nil {
			return err
		}
		log.Printf("%s: wrote %s and %s", d.Format(domain.DateLayout), smoke, fire)
	}

	log.Printf("export HMS_SMOKE_BASE_URL=%s HMS_FIRE_BASE_URL=%s HMS_BOUNDARY_URL=%s", smokeBase, fireBase, boundaryPath)
	return nil
}

func writeLayer(path string, l fixture.Layer) error {
	data, err := l.Zip()
	if err != nil {
		return fmt.Errorf("build %s: %w", l.Name, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
