package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/hms-wildfire-etl/internal/domain"
	"github.com/couchcryptid/hms-wildfire-etl/internal/observability"
)

// Source yields one cycle of smoke and fire records. Per-date failures come
// back joined in the error alongside the dates that succeeded.
type Source interface {
	GetSmokeData(ctx context.Context) ([]domain.SmokeRecord, error)
	GetFireData(ctx context.Context) ([]domain.FireRecord, error)
}

// Loader writes a cycle's records to one destination.
type Loader interface {
	Name() string
	Load(ctx context.Context, records []domain.Record) error
}

// maxLoadAttempts bounds retries of one loader within a cycle.
const maxLoadAttempts = 5

// Pipeline runs fetch-process-publish cycles on a fixed interval.
type Pipeline struct {
	source   Source
	loaders  []Loader
	logger   *slog.Logger
	metrics  *observability.Metrics
	interval time.Duration
	ready    atomic.Bool
}

// New creates a Pipeline. An interval of zero runs a single cycle.
func New(source Source, loaders []Loader, logger *slog.Logger, metrics *observability.Metrics, interval time.Duration) *Pipeline {
	return &Pipeline{
		source:   source,
		loaders:  loaders,
		logger:   logger,
		metrics:  metrics,
		interval: interval,
	}
}

// CheckReadiness returns nil once a cycle has published to at least one
// loader, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not published any records yet")
	}
	return nil
}

// Run executes a cycle immediately and then once per interval until the
// context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "interval", p.interval.String(), "loaders", len(p.loaders))

	for {
		p.RunCycle(ctx)

		if p.interval == 0 {
			p.logger.Info("pipeline finished single cycle")
			return nil
		}
		if !sleepWithContext(ctx, p.interval) {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// RunCycle fetches both products and publishes them to every loader. It
// returns the number of loaders that accepted the cycle's records.
func (p *Pipeline) RunCycle(ctx context.Context) int {
	start := time.Now()
	p.metrics.CycleRunning.Set(1)
	defer p.metrics.CycleRunning.Set(0)

	records := p.extract(ctx)
	if ctx.Err() != nil {
		return 0
	}
	if len(records) == 0 {
		p.logger.Warn("cycle produced no records")
		return 0
	}

	loaded := 0
	for _, l := range p.loaders {
		if p.loadWithRetry(ctx, l, records) {
			loaded++
		}
	}

	if loaded > 0 {
		p.ready.Store(true)
	}
	p.metrics.CycleDuration.Observe(time.Since(start).Seconds())
	p.logger.Info("cycle complete",
		"records", len(records),
		"loaders", loaded,
		"duration", time.Since(start).String(),
	)
	return loaded
}

// loadWithRetry loads records with exponential backoff. Returns false if the
// loader never accepted them.
func (p *Pipeline) loadWithRetry(ctx context.Context, l Loader, records []domain.Record) bool {
	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for attempt := 1; ; attempt++ {
		err := l.Load(ctx, records)
		if err == nil {
			p.countPublished(l.Name(), records)
			return true
		}
		p.metrics.PublishErrors.WithLabelValues(l.Name()).Inc()
		p.logger.Error("load failed", "sink", l.Name(), "attempt", attempt, "error", err)

		if attempt >= maxLoadAttempts || !p.backoffOrStop(ctx, &backoff, maxBackoff) {
			return false
		}
	}
}

func (p *Pipeline) countPublished(sink string, records []domain.Record) {
	for _, r := range records {
		p.metrics.RecordsPublished.WithLabelValues(string(r.Product), sink).Inc()
	}
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
