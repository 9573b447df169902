package pipeline

import (
	"context"
	"errors"

	"github.com/couchcryptid/hms-wildfire-etl/internal/domain"
)

// extract gathers both products into sink records. Per-date failures are
// logged and skipped.
func (p *Pipeline) extract(ctx context.Context) []domain.Record {
	smoke, err := p.source.GetSmokeData(ctx)
	p.logFailures(domain.Smoke, err)
	if ctx.Err() != nil {
		return nil
	}

	fire, err := p.source.GetFireData(ctx)
	p.logFailures(domain.Fire, err)

	records := make([]domain.Record, 0, len(smoke)+len(fire))
	records = append(records, domain.SmokeRecords(smoke)...)
	records = append(records, domain.FireRecords(fire)...)
	return records
}

// logFailures reports each date failure carried by err.
func (p *Pipeline) logFailures(product domain.Product, err error) {
	for _, e := range splitErrors(err) {
		attrs := []any{"product", string(product), "kind", domain.KindOf(e), "error", e}
		var fe *domain.FetchError
		if errors.As(e, &fe) && !fe.Ref.Date.IsZero() {
			attrs = append(attrs, "date", fe.Ref.Date.Format(domain.DateLayout), "url", fe.Ref.Location)
		}
		p.logger.Warn("date failed", attrs...)
	}
}

// splitErrors flattens an errors.Join result into its members.
func splitErrors(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		if _, isFetch := err.(*domain.FetchError); !isFetch {
			return joined.Unwrap()
		}
	}
	return []error{err}
}
