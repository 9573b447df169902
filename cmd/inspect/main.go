// Command inspect loads one HMS archive, from a URL or a local path, and
// prints what the service would see: source projection, attribute columns,
// feature count, and per-density plume counts for smoke. With -date it
// builds the archive URL for that day instead.
//
// Usage:
//
//	go run ./cmd/inspect -product smoke -date 2024-08-10
//	go run ./cmd/inspect -product fire data/fixture/fire/2024/08/hms_fire20240810.zip
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/couchcryptid/hms-wildfire-etl/internal/adapter/archive"
	"github.com/couchcryptid/hms-wildfire-etl/internal/domain"
	"github.com/couchcryptid/hms-wildfire-etl/internal/observability"
)

func main() {
	product := flag.String("product", "smoke", "archive product: smoke, fire, or boundary")
	dateStr := flag.String("date", "", "build the NOAA URL for this date (YYYY-MM-DD)")
	timeout := flag.Duration("timeout", 2*time.Minute, "download timeout")
	defaultCRS := flag.String("default-crs", "", "CRS assumed when the archive has no .prj")
	flag.Parse()

	ref, err := reference(domain.Product(*product), *dateStr, flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}
	os.Exit(run(ref, *timeout, domain.CRS(*defaultCRS), os.Stdout))
}

func reference(product domain.Product, dateStr, location string) (domain.ArchiveReference, error) {
	ref := domain.ArchiveReference{Product: product, Location: location}
	switch product {
	case domain.Smoke, domain.Fire, domain.Boundary:
	default:
		return ref, fmt.Errorf("unknown product %q", product)
	}
	if dateStr != "" {
		d, err := domain.ParseDate(dateStr)
		if err != nil {
			return ref, fmt.Errorf("invalid -date: %w", err)
		}
		ref.Date = d
		if location == "" {
			loc, err := domain.NewURLBuilder("", "").Build(d, product)
			if err != nil {
				return ref, err
			}
			ref.Location = loc
		}
	}
	if ref.Location == "" {
		return ref, fmt.Errorf("need an archive location or -date")
	}
	return ref, nil
}

func run(ref domain.ArchiveReference, timeout time.Duration, defaultCRS domain.CRS, w io.Writer) int {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	source := archive.NewResolver(archive.LocalSource{}, archive.NewRemoteSource(timeout, logger))
	fetcher := archive.NewFetcher(source, archive.Options{DefaultSourceCRS: defaultCRS}, logger, observability.NewMetricsForTesting())

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ds, err := fetcher.Fetch(ctx, ref)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAIL (%s): %v\n", domain.KindOf(err), err)
		return 1
	}

	fmt.Fprintf(w, "location: %s\n", ref.Location)
	fmt.Fprintf(w, "crs:      %s\n", ds.CRS)
	fmt.Fprintf(w, "fields:   %v\n", ds.Fields)
	fmt.Fprintf(w, "features: %d\n", ds.Len())
	if b, ok := bound(ds); ok {
		fmt.Fprintf(w, "bounds:   [%.4f %.4f] .. [%.4f %.4f]\n", b[0], b[1], b[2], b[3])
	}

	if ref.Product == domain.Smoke {
		counts := densityCounts(ds)
		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintln(w, "density:")
		for _, k := range keys {
			label := k
			if label == "" {
				label = "(missing)"
			}
			fmt.Fprintf(w, "  %-10s %d\n", label, counts[k])
		}
	}
	return 0
}

func densityCounts(ds domain.Dataset) map[string]int {
	counts := map[string]int{}
	for _, f := range ds.Features {
		d, _ := f.Properties[domain.DensityField].(string)
		counts[d]++
	}
	return counts
}

func bound(ds domain.Dataset) ([4]float64, bool) {
	if ds.Len() == 0 {
		return [4]float64{}, false
	}
	b := ds.Features[0].Geometry.Bound()
	for _, f := range ds.Features[1:] {
		b = b.Union(f.Geometry.Bound())
	}
	return [4]float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}, true
}
