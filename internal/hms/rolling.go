package hms

import (
	"context"
	"time"

	"github.com/couchcryptid/hms-wildfire-etl/internal/domain"
	"github.com/jonboulle/clockwork"
)

// RollingHandler re-anchors a Handler's range to yesterday on every call, so
// a long-running process never serves a stale start date.
type RollingHandler struct {
	base  *Handler
	clock clockwork.Clock
}

// Rolling wraps h so each operation starts from yesterday by clock.
func Rolling(h *Handler, clock clockwork.Clock) *RollingHandler {
	return &RollingHandler{base: h, clock: clock}
}

// Current returns the handler anchored to yesterday right now.
func (r *RollingHandler) Current() *Handler {
	return r.base.ForDate(domain.Yesterday(r.clock.Now()))
}

// Dates returns the current date range.
func (r *RollingHandler) Dates() []time.Time {
	return r.Current().Dates()
}

func (r *RollingHandler) GetSmokeData(ctx context.Context) ([]domain.SmokeRecord, error) {
	return r.Current().GetSmokeData(ctx)
}

func (r *RollingHandler) GetFireData(ctx context.Context) ([]domain.FireRecord, error) {
	return r.Current().GetFireData(ctx)
}
