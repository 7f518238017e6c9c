package statuspage

import (
	"context"
	"errors"
	"time"

	"github.com/bissquit/status24/internal/domain"
	"github.com/bissquit/status24/internal/pkg/metrics"
)

// InstrumentedRepository records the latency and outcome of every store call.
type InstrumentedRepository struct {
	next   Repository
	driver string
}

// NewInstrumentedRepository wraps repo, labelling metrics with driver.
func NewInstrumentedRepository(repo Repository, driver string) *InstrumentedRepository {
	return &InstrumentedRepository{next: repo, driver: driver}
}

func (r *InstrumentedRepository) observe(op string, start time.Time, err error) {
	result := "ok"
	switch {
	case errors.Is(err, ErrOrganizationNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	metrics.StoreOperationDuration.WithLabelValues(r.driver, op, result).Observe(time.Since(start).Seconds())
}

// EnsureContainer implements Repository.
func (r *InstrumentedRepository) EnsureContainer(ctx context.Context, orgID string, container domain.Container) (err error) {
	defer func(start time.Time) { r.observe("ensure_container", start, err) }(time.Now())
	return r.next.EnsureContainer(ctx, orgID, container)
}

// GetOrganization implements Repository.
func (r *InstrumentedRepository) GetOrganization(ctx context.Context, orgID string) (org *domain.Organization, err error) {
	defer func(start time.Time) { r.observe("get_organization", start, err) }(time.Now())
	return r.next.GetOrganization(ctx, orgID)
}

// Patch implements Repository.
func (r *InstrumentedRepository) Patch(ctx context.Context, orgID string, p Patch) (err error) {
	defer func(start time.Time) { r.observe("patch", start, err) }(time.Now())
	return r.next.Patch(ctx, orgID, p)
}

// ListOrganizationIDs implements Repository.
func (r *InstrumentedRepository) ListOrganizationIDs(ctx context.Context) (ids []string, err error) {
	defer func(start time.Time) { r.observe("list_organizations", start, err) }(time.Now())
	return r.next.ListOrganizationIDs(ctx)
}

// Ping implements Repository.
func (r *InstrumentedRepository) Ping(ctx context.Context) (err error) {
	defer func(start time.Time) { r.observe("ping", start, err) }(time.Now())
	return r.next.Ping(ctx)
}
