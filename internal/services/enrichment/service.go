// Package enrichment maintains the short-entity cache rows. Every write
// goes through a read-decide-write cycle guarded by the row's version
// column; on a lost race the whole cycle restarts against fresh state.
// Accepted transitions emit exactly one event, no-op outcomes emit
// nothing.
package enrichment

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tokenmesh/marketplace-backend/internal/domain"
	apperr "github.com/tokenmesh/marketplace-backend/internal/pkg/errors"
	"github.com/tokenmesh/marketplace-backend/internal/pkg/logger"
	"github.com/tokenmesh/marketplace-backend/internal/services/bestorder"
)

const tracerName = "github.com/tokenmesh/marketplace-backend/internal/services/enrichment"

// EventSink receives the entity events produced by accepted enrichment
// transitions. Publishing happens after the row is committed; sink
// failures are logged by the caller and never roll the write back.
type EventSink interface {
	PublishUpdate(ctx context.Context, event domain.EntityUpdateEvent) error
	PublishDelete(ctx context.Context, event domain.EntityDeleteEvent) error
}

// NopSink drops all events. Used in tests and in tools that rebuild the
// cache without notifying consumers.
type NopSink struct{}

func (NopSink) PublishUpdate(context.Context, domain.EntityUpdateEvent) error { return nil }
func (NopSink) PublishDelete(context.Context, domain.EntityDeleteEvent) error { return nil }

func newUpdateEvent(kind domain.EntityKind, entityID string, entity interface{}) domain.EntityUpdateEvent {
	return domain.EntityUpdateEvent{
		EventID:   uuid.NewString(),
		Kind:      kind,
		EntityID:  entityID,
		Entity:    entity,
		EmittedAt: time.Now().UTC(),
	}
}

func newDeleteEvent(kind domain.EntityKind, entityID string) domain.EntityDeleteEvent {
	return domain.EntityDeleteEvent{
		EventID:   uuid.NewString(),
		Kind:      kind,
		EntityID:  entityID,
		EmittedAt: time.Now().UTC(),
	}
}

// retryOnConflict reruns fn until it returns something other than
// ErrVersionConflict. There is no attempt cap: each retry re-reads the
// winning row, so the cycle converges as soon as contention stops.
func retryOnConflict(ctx context.Context, log *logger.Logger, op string, fn func(ctx context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if !errors.Is(err, apperr.ErrVersionConflict) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Debug("version conflict, restarting cycle", "op", op, "attempt", attempt)
	}
}

// withCurrency sets or clears one currency's best order in a map,
// allocating or dropping the map as needed.
func withCurrency(m map[string]*domain.ShortOrder, currencyID string, best *domain.ShortOrder) map[string]*domain.ShortOrder {
	if best == nil {
		delete(m, currencyID)
		if len(m) == 0 {
			return nil
		}
		return m
	}
	if m == nil {
		m = make(map[string]*domain.ShortOrder, 1)
	}
	m[currencyID] = best
	return m
}

// bestOfMap folds the per-currency map down to the single overall best.
// Keys are visited in sorted order so the fold is deterministic.
func bestOfMap(m map[string]*domain.ShortOrder, cmp bestorder.Comparator) *domain.ShortOrder {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var best *domain.ShortOrder
	for _, k := range keys {
		best = cmp.Pick(best, m[k])
	}
	return best
}

func cloneOrderMap(m map[string]*domain.ShortOrder) map[string]*domain.ShortOrder {
	if m == nil {
		return nil
	}
	out := make(map[string]*domain.ShortOrder, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneOriginOrders(in []domain.OriginOrders) []domain.OriginOrders {
	if in == nil {
		return nil
	}
	return append([]domain.OriginOrders(nil), in...)
}

// originEntry finds the origin's slot, appending a fresh one when the
// origin is not yet tracked.
func originEntry(list []domain.OriginOrders, origin string) ([]domain.OriginOrders, int) {
	for i := range list {
		if list[i].Origin == origin {
			return list, i
		}
	}
	list = append(list, domain.OriginOrders{Origin: origin})
	return list, len(list) - 1
}
