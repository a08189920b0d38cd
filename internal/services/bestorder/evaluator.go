package bestorder

import (
	"context"
	"fmt"

	"github.com/tokenmesh/marketplace-backend/internal/domain"
	"github.com/tokenmesh/marketplace-backend/internal/pkg/logger"
)

// Provider re-fetches the true best order for the entity being enriched
// from the chain's order-query interface, for one currency. It is
// injected per call site (item/ownership/collection, optionally
// origin-scoped) so the same evaluation logic serves all of them.
type Provider func(ctx context.Context, currencyID string) (*domain.ShortOrder, error)

// Evaluator applies one observed order to the currently-cached best
// order of an (entity, currency) pair.
type Evaluator struct {
	cmp Comparator
	log *logger.Logger
}

func NewEvaluator(cmp Comparator, log *logger.Logger) *Evaluator {
	return &Evaluator{cmp: cmp, log: log.With("service", "BestOrderEvaluator")}
}

// OnOrderUpdate returns the new best order for the pair, or nil when no
// order should be cached. A dead update for the cached best never
// assumes "no order": it re-fetches from source of truth, because the
// death event may have raced an earlier missed event for a different,
// still-alive order.
func (e *Evaluator) OnOrderUpdate(ctx context.Context, current *domain.ShortOrder, update *domain.Order, provider Provider) (*domain.ShortOrder, error) {
	updated := update.ToShort()
	sameID := current != nil && current.OrderID == updated.OrderID

	switch {
	case update.IsAlive() && current == nil:
		e.logDecision("adopt", current, update, updated)
		return updated, nil

	case update.IsAlive() && sameID:
		// Same order changed (price/stock); refresh cached fields.
		e.logDecision("refresh", current, update, updated)
		return updated, nil

	case update.IsAlive():
		winner := e.cmp.Pick(current, updated)
		e.logDecision("compare", current, update, winner)
		return winner, nil

	case current == nil:
		e.logDecision("ignore dead", current, update, nil)
		return nil, nil

	case sameID:
		// The cached best died; confirm against source of truth.
		fetched, err := provider(ctx, current.CurrencyID)
		if err != nil {
			return nil, fmt.Errorf("refetch best order after %s died: %w", updated.OrderID, err)
		}
		e.logDecision("refetch", current, update, fetched)
		return fetched, nil

	default:
		e.logDecision("keep current", current, update, current)
		return current, nil
	}
}

func (e *Evaluator) logDecision(action string, current *domain.ShortOrder, update *domain.Order, result *domain.ShortOrder) {
	currentID, resultID := "", ""
	if current != nil {
		currentID = current.OrderID
	}
	if result != nil {
		resultID = result.OrderID
	}
	e.log.Debug("best order decision",
		"action", action,
		"current", currentID,
		"update", update.ID.String(),
		"update_status", update.Status,
		"result", resultID,
	)
}
