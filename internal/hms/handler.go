// Package hms exposes the public smoke and fire operations over a fixed
// boundary and date range.
package hms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/couchcryptid/hms-wildfire-etl/internal/domain"
	"github.com/couchcryptid/hms-wildfire-etl/internal/observability"
	"github.com/couchcryptid/hms-wildfire-etl/internal/spatial"
	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/errgroup"
)

// ArchiveFetcher loads one archive as a dataset in the working CRS.
type ArchiveFetcher interface {
	Fetch(ctx context.Context, ref domain.ArchiveReference) (domain.Dataset, error)
}

// Options configures a Handler.
type Options struct {
	// StartDate is the most recent date of the range. Zero means yesterday,
	// evaluated when the handler is built.
	StartDate time.Time
	Span      domain.Span

	SmokeBaseURL string
	FireBaseURL  string
	BoundaryURL  string

	// Concurrency bounds parallel per-date fetches. Values below 2 fetch
	// sequentially.
	Concurrency int

	// AllOrNothing stops at the first failed date and returns no records.
	AllOrNothing bool
}

// Handler runs the smoke and fire operations for one date range.
type Handler struct {
	fetcher  ArchiveFetcher
	boundary *spatial.Boundary
	urls     domain.URLBuilder
	dates    []time.Time
	opts     Options
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewHandler loads the boundary and fixes the date range. A boundary failure
// is fatal for the handler.
func NewHandler(ctx context.Context, opts Options, fetcher ArchiveFetcher, logger *slog.Logger, metrics *observability.Metrics) (*Handler, error) {
	if opts.BoundaryURL == "" {
		opts.BoundaryURL = domain.DefaultBoundaryURL
	}
	boundary, err := LoadBoundary(ctx, fetcher, opts.BoundaryURL)
	if err != nil {
		return nil, err
	}
	logger.Info("boundary loaded", "url", opts.BoundaryURL)
	return NewHandlerWithBoundary(boundary, opts, fetcher, logger, metrics)
}

// NewHandlerWithBoundary builds a Handler over an already loaded boundary.
func NewHandlerWithBoundary(boundary *spatial.Boundary, opts Options, fetcher ArchiveFetcher, logger *slog.Logger, metrics *observability.Metrics) (*Handler, error) {
	days, err := opts.Span.DayCount()
	if err != nil {
		return nil, err
	}
	if opts.StartDate.IsZero() {
		opts.StartDate = domain.Yesterday(domain.Now())
	}

	return &Handler{
		fetcher:  fetcher,
		boundary: boundary,
		urls:     domain.NewURLBuilder(opts.SmokeBaseURL, opts.FireBaseURL),
		dates:    domain.DateRange(opts.StartDate, days),
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// LoadBoundary fetches the boundary archive and dissolves it into a single
// clip region.
func LoadBoundary(ctx context.Context, fetcher ArchiveFetcher, location string) (*spatial.Boundary, error) {
	ds, err := fetcher.Fetch(ctx, domain.ArchiveReference{Product: domain.Boundary, Location: location})
	if err != nil {
		return nil, fmt.Errorf("load boundary: %w", err)
	}
	merged, err := spatial.DissolveAll(ds)
	if err != nil {
		return nil, fmt.Errorf("load boundary: %w", err)
	}
	b, err := spatial.NewBoundary(merged)
	if err != nil {
		return nil, fmt.Errorf("load boundary: %w", err)
	}
	return b, nil
}

// Dates returns the handler's date range, most recent first.
func (h *Handler) Dates() []time.Time {
	return slices.Clone(h.dates)
}

// Boundary returns the shared clip region.
func (h *Handler) Boundary() *spatial.Boundary {
	return h.boundary
}

// ForDate returns a handler with the same boundary and span starting at start.
func (h *Handler) ForDate(start time.Time) *Handler {
	next := *h
	next.opts.StartDate = domain.Midnight(start)
	next.dates = domain.DateRange(start, len(h.dates))
	return &next
}

// GetSmokeData fetches, clips, and dissolves each date's smoke plumes by
// density, then styles every row. Failed dates are joined into the error.
func (h *Handler) GetSmokeData(ctx context.Context) ([]domain.SmokeRecord, error) {
	results, err := h.collect(ctx, domain.Smoke, h.processSmoke)
	if results == nil {
		return nil, err
	}
	records := make([]domain.SmokeRecord, len(results))
	for i, r := range results {
		records[i] = domain.SmokeRecord{Date: r.date, Dataset: r.ds}
	}
	return records, err
}

// GetFireData fetches and clips each date's fire detections, keeping the
// upstream schema. Failed dates are joined into the error.
func (h *Handler) GetFireData(ctx context.Context) ([]domain.FireRecord, error) {
	results, err := h.collect(ctx, domain.Fire, h.processFire)
	if results == nil {
		return nil, err
	}
	records := make([]domain.FireRecord, len(results))
	for i, r := range results {
		records[i] = domain.FireRecord{Date: r.date, Dataset: r.ds}
	}
	return records, err
}

type datedDataset struct {
	date time.Time
	ds   domain.Dataset
}

type processFunc func(ref domain.ArchiveReference, ds domain.Dataset) (domain.Dataset, error)

// collect runs fetch and process for every date. Each date writes only its
// own result slot.
func (h *Handler) collect(ctx context.Context, product domain.Product, process processFunc) ([]datedDataset, error) {
	refs, err := h.urls.References(h.dates, product)
	if err != nil {
		return nil, err
	}

	results := make([]domain.Dataset, len(refs))
	errs := make([]error, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, h.opts.Concurrency))
	for i, ref := range refs {
		g.Go(func() error {
			if h.opts.AllOrNothing && gctx.Err() != nil {
				return nil
			}
			fetchCtx := gctx
			if i == 0 {
				// The newest day is still being republished upstream.
				fetchCtx = domain.WithFreshFetch(gctx)
			}
			ds, err := h.fetchAndProcess(fetchCtx, ref, process)
			if err != nil {
				errs[i] = err
				h.logger.Debug("date skipped",
					"product", string(product),
					"date", ref.Date.Format(domain.DateLayout),
					"url", ref.Location,
					"kind", domain.KindOf(err),
					"error", err,
				)
				if h.opts.AllOrNothing {
					return err
				}
				return nil
			}
			results[i] = ds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]datedDataset, 0, len(refs))
	var failed []error
	for i, ref := range refs {
		if errs[i] != nil {
			failed = append(failed, errs[i])
			continue
		}
		out = append(out, datedDataset{date: ref.Date, ds: results[i]})
	}
	return out, errors.Join(failed...)
}

func (h *Handler) fetchAndProcess(ctx context.Context, ref domain.ArchiveReference, process processFunc) (domain.Dataset, error) {
	ds, err := h.fetcher.Fetch(ctx, ref)
	if err != nil {
		return domain.Dataset{}, err
	}
	return process(ref, ds)
}

// clip reprojects and clips ds, recording per-outcome counts.
func (h *Handler) clip(ref domain.ArchiveReference, ds domain.Dataset) (domain.Dataset, error) {
	out, stats, err := spatial.Process(ds, h.boundary)
	if err != nil {
		kind := domain.ErrGeometry
		if errors.Is(err, domain.ErrReprojection) {
			kind = domain.ErrReprojection
		}
		return domain.Dataset{}, domain.NewFetchError(ref, kind, err)
	}
	product := string(ref.Product)
	h.metrics.FeaturesClipped.WithLabelValues(product, "kept").Add(float64(stats.Kept))
	h.metrics.FeaturesClipped.WithLabelValues(product, "outside").Add(float64(stats.Outside))
	return out, nil
}

func (h *Handler) processFire(ref domain.ArchiveReference, ds domain.Dataset) (domain.Dataset, error) {
	return h.clip(ref, ds)
}

func (h *Handler) processSmoke(ref domain.ArchiveReference, ds domain.Dataset) (domain.Dataset, error) {
	clipped, err := h.clip(ref, ds)
	if err != nil {
		return domain.Dataset{}, err
	}
	dissolved, err := spatial.DissolveBy(clipped, domain.DensityField)
	if err != nil {
		return domain.Dataset{}, domain.NewFetchError(ref, domain.ErrGeometry, err)
	}
	applyStyle(&dissolved)
	return dissolved, nil
}

// applyStyle attaches the density style to every row.
func applyStyle(ds *domain.Dataset) {
	for _, f := range ds.Features {
		if f.Properties == nil {
			f.Properties = geojson.Properties{}
		}
		f.Properties[domain.StyleProperty] = domain.StyleForProperties(f.Properties)
	}
	if !slices.Contains(ds.Fields, domain.StyleProperty) {
		ds.Fields = append(slices.Clone(ds.Fields), domain.StyleProperty)
	}
}
