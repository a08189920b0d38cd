package enrichment

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tokenmesh/marketplace-backend/internal/clients/chain"
	"github.com/tokenmesh/marketplace-backend/internal/data/repos"
	"github.com/tokenmesh/marketplace-backend/internal/domain"
	apperr "github.com/tokenmesh/marketplace-backend/internal/pkg/errors"
	"github.com/tokenmesh/marketplace-backend/internal/pkg/logger"
	"github.com/tokenmesh/marketplace-backend/internal/router"
	"github.com/tokenmesh/marketplace-backend/internal/services/bestorder"
)

// ItemEnrichmentService keeps the item cache rows consistent with the
// order and ownership streams, and can rebuild any row from the chain's
// order-query interface.
type ItemEnrichmentService interface {
	ApplyOrderUpdate(ctx context.Context, id domain.ItemID, order *domain.Order) error
	// ApplySellStats re-reads the ownership-derived sell stats from the
	// chain and folds them into the row.
	ApplySellStats(ctx context.Context, id domain.ItemID) error
	Refresh(ctx context.Context, id domain.ItemID) error
	// RefreshByCollection sweeps every item of a collection through
	// Refresh. Per-item failures are logged and skipped; the sweep only
	// fails when the item listing itself does.
	RefreshByCollection(ctx context.Context, id domain.CollectionID) (int, error)
}

type itemEnrichmentService struct {
	repo       repos.ShortItemRepo
	items      *router.Router[chain.ItemService]
	orders     *router.Router[chain.OrderService]
	ownerships *router.Router[chain.OwnershipService]
	sellEval   *bestorder.Evaluator
	bidEval    *bestorder.Evaluator
	sellCmp    bestorder.Comparator
	bidCmp     bestorder.Comparator
	sink       EventSink
	tracer     trace.Tracer
	log        *logger.Logger
}

func NewItemEnrichmentService(
	repo repos.ShortItemRepo,
	items *router.Router[chain.ItemService],
	orders *router.Router[chain.OrderService],
	ownerships *router.Router[chain.OwnershipService],
	preferred domain.Platform,
	sink EventSink,
	baseLog *logger.Logger,
) ItemEnrichmentService {
	log := baseLog.With("service", "ItemEnrichmentService")
	sellCmp := bestorder.NewSellComparator(preferred)
	bidCmp := bestorder.NewBidComparator(preferred)
	return &itemEnrichmentService{
		repo:       repo,
		items:      items,
		orders:     orders,
		ownerships: ownerships,
		sellEval:   bestorder.NewEvaluator(sellCmp, log),
		bidEval:    bestorder.NewEvaluator(bidCmp, log),
		sellCmp:    sellCmp,
		bidCmp:     bidCmp,
		sink:       sink,
		tracer:     otel.Tracer(tracerName),
		log:        log,
	}
}

func (s *itemEnrichmentService) ApplyOrderUpdate(ctx context.Context, id domain.ItemID, order *domain.Order) error {
	ctx, span := s.tracer.Start(ctx, "ItemEnrichment.ApplyOrderUpdate",
		trace.WithAttributes(attribute.String("item.id", id.String())))
	defer span.End()

	if order == nil {
		return fmt.Errorf("item %s: nil order update: %w", id, apperr.ErrInvalidArgument)
	}
	if order.CurrencyID() == "" {
		return fmt.Errorf("order %s has no payment currency: %w", order.ID, apperr.ErrInvalidArgument)
	}

	return retryOnConflict(ctx, s.log, "item order update", func(ctx context.Context) error {
		current, err := s.repo.Get(ctx, nil, id.String())
		if err != nil {
			return err
		}
		next := cloneShortItem(current)
		if next == nil {
			next = domain.EmptyShortItem(id)
		}
		if err := s.applyOrder(ctx, id, next, order); err != nil {
			return err
		}
		return s.commit(ctx, id, current, next)
	})
}

// applyOrder folds one observed order into the row: the per-currency
// map entry, the overall best derived from the map, and every
// origin-scoped slot the order belongs to.
func (s *itemEnrichmentService) applyOrder(ctx context.Context, id domain.ItemID, next *domain.ShortItem, order *domain.Order) error {
	currency := order.CurrencyID()

	if order.IsSell() {
		best, err := s.sellEval.OnOrderUpdate(ctx, next.BestSellOrders[currency], order, s.sellProvider(id, ""))
		if err != nil {
			return err
		}
		next.BestSellOrders = withCurrency(next.BestSellOrders, currency, best)
		next.BestSellOrder = bestOfMap(next.BestSellOrders, s.sellCmp)
	} else {
		best, err := s.bidEval.OnOrderUpdate(ctx, next.BestBidOrders[currency], order, s.bidProvider(id, ""))
		if err != nil {
			return err
		}
		next.BestBidOrders = withCurrency(next.BestBidOrders, currency, best)
		next.BestBidOrder = bestOfMap(next.BestBidOrders, s.bidCmp)
	}

	for _, origin := range order.Origins {
		list, i := originEntry(next.OriginOrders, origin)
		if order.IsSell() {
			best, err := s.sellEval.OnOrderUpdate(ctx, list[i].BestSellOrder, order, s.sellProvider(id, origin))
			if err != nil {
				return err
			}
			list[i].BestSellOrder = best
		} else {
			best, err := s.bidEval.OnOrderUpdate(ctx, list[i].BestBidOrder, order, s.bidProvider(id, origin))
			if err != nil {
				return err
			}
			list[i].BestBidOrder = best
		}
		next.OriginOrders = list
	}
	next.OriginOrders = domain.PruneOriginOrders(next.OriginOrders)
	return nil
}

func (s *itemEnrichmentService) sellProvider(id domain.ItemID, origin string) bestorder.Provider {
	return func(ctx context.Context, currencyID string) (*domain.ShortOrder, error) {
		svc, err := s.orders.GetService(id.Blockchain)
		if err != nil {
			return nil, err
		}
		slice, err := svc.GetSellOrdersByItem(ctx, id, "", currencyID, origin, nil, 1)
		if err != nil {
			return nil, err
		}
		if len(slice.Entities) == 0 {
			return nil, nil
		}
		return slice.Entities[0].ToShort(), nil
	}
}

func (s *itemEnrichmentService) bidProvider(id domain.ItemID, origin string) bestorder.Provider {
	return func(ctx context.Context, currencyID string) (*domain.ShortOrder, error) {
		svc, err := s.orders.GetService(id.Blockchain)
		if err != nil {
			return nil, err
		}
		slice, err := svc.GetBidOrdersByItem(ctx, id, currencyID, origin, nil, 1)
		if err != nil {
			return nil, err
		}
		if len(slice.Entities) == 0 {
			return nil, nil
		}
		return slice.Entities[0].ToShort(), nil
	}
}

func (s *itemEnrichmentService) ApplySellStats(ctx context.Context, id domain.ItemID) error {
	ctx, span := s.tracer.Start(ctx, "ItemEnrichment.ApplySellStats",
		trace.WithAttributes(attribute.String("item.id", id.String())))
	defer span.End()

	svc, err := s.ownerships.GetService(id.Blockchain)
	if err != nil {
		return err
	}
	stats, err := svc.GetItemSellStats(ctx, id)
	if err != nil {
		return fmt.Errorf("sell stats for %s: %w", id, err)
	}

	return retryOnConflict(ctx, s.log, "item sell stats", func(ctx context.Context) error {
		current, err := s.repo.Get(ctx, nil, id.String())
		if err != nil {
			return err
		}
		next := cloneShortItem(current)
		if next == nil {
			next = domain.EmptyShortItem(id)
		}
		next.Sellers = stats.Sellers
		next.TotalStock = stats.TotalStock
		return s.commit(ctx, id, current, next)
	})
}

func (s *itemEnrichmentService) Refresh(ctx context.Context, id domain.ItemID) error {
	ctx, span := s.tracer.Start(ctx, "ItemEnrichment.Refresh",
		trace.WithAttributes(attribute.String("item.id", id.String())))
	defer span.End()

	itemSvc, err := s.items.GetService(id.Blockchain)
	if err != nil {
		return err
	}
	if _, err := itemSvc.GetItemByID(ctx, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			// The item itself is gone upstream; any cache row is stale.
			return s.dropStale(ctx, id)
		}
		return err
	}

	rebuilt, err := s.rebuild(ctx, id)
	if err != nil {
		return err
	}

	return retryOnConflict(ctx, s.log, "item refresh", func(ctx context.Context) error {
		current, err := s.repo.Get(ctx, nil, id.String())
		if err != nil {
			return err
		}
		next := cloneShortItem(rebuilt)
		if current != nil {
			// Auctions and origin slots are not reconstructible from the
			// order-query interface alone; carry the tracked origins over
			// and re-verify each against source of truth.
			next.Auctions = append([]string(nil), current.Auctions...)
			next.OriginOrders, err = s.refreshOrigins(ctx, id, current.OriginOrders)
			if err != nil {
				return err
			}
		}
		return s.commit(ctx, id, current, next)
	})
}

// rebuild recomputes the per-currency maps, overall bests and sell
// stats straight from the chain services.
func (s *itemEnrichmentService) rebuild(ctx context.Context, id domain.ItemID) (*domain.ShortItem, error) {
	orderSvc, err := s.orders.GetService(id.Blockchain)
	if err != nil {
		return nil, err
	}
	ownSvc, err := s.ownerships.GetService(id.Blockchain)
	if err != nil {
		return nil, err
	}

	next := domain.EmptyShortItem(id)

	sellCurrencies, err := orderSvc.GetSellCurrencies(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("sell currencies for %s: %w", id, err)
	}
	for _, currency := range sellCurrencies {
		best, err := s.sellProvider(id, "")(ctx, currency)
		if err != nil {
			return nil, err
		}
		next.BestSellOrders = withCurrency(next.BestSellOrders, currency, best)
	}
	next.BestSellOrder = bestOfMap(next.BestSellOrders, s.sellCmp)

	bidCurrencies, err := orderSvc.GetBidCurrencies(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("bid currencies for %s: %w", id, err)
	}
	for _, currency := range bidCurrencies {
		best, err := s.bidProvider(id, "")(ctx, currency)
		if err != nil {
			return nil, err
		}
		next.BestBidOrders = withCurrency(next.BestBidOrders, currency, best)
	}
	next.BestBidOrder = bestOfMap(next.BestBidOrders, s.bidCmp)

	stats, err := ownSvc.GetItemSellStats(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("sell stats for %s: %w", id, err)
	}
	next.Sellers = stats.Sellers
	next.TotalStock = stats.TotalStock
	return next, nil
}

func (s *itemEnrichmentService) refreshOrigins(ctx context.Context, id domain.ItemID, tracked []domain.OriginOrders) ([]domain.OriginOrders, error) {
	var out []domain.OriginOrders
	for _, oo := range tracked {
		refreshed := domain.OriginOrders{Origin: oo.Origin}
		best, err := s.sellProvider(id, oo.Origin)(ctx, "")
		if err != nil {
			return nil, err
		}
		refreshed.BestSellOrder = best
		best, err = s.bidProvider(id, oo.Origin)(ctx, "")
		if err != nil {
			return nil, err
		}
		refreshed.BestBidOrder = best
		out = append(out, refreshed)
	}
	return domain.PruneOriginOrders(out), nil
}

func (s *itemEnrichmentService) RefreshByCollection(ctx context.Context, id domain.CollectionID) (int, error) {
	ctx, span := s.tracer.Start(ctx, "ItemEnrichment.RefreshByCollection",
		trace.WithAttributes(attribute.String("collection.id", id.String())))
	defer span.End()

	itemSvc, err := s.items.GetService(id.Blockchain)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	var cont *string
	for {
		page, err := itemSvc.GetItemsByCollection(ctx, id, cont, refreshPageSize)
		if err != nil {
			return refreshed, fmt.Errorf("list items of %s: %w", id, err)
		}
		for _, item := range page.Entities {
			if err := s.Refresh(ctx, item.ID); err != nil {
				s.log.Warn("item refresh failed, skipping", "item", item.ID.String(), "error", err)
				continue
			}
			refreshed++
		}
		if page.Continuation == nil || *page.Continuation == "" {
			return refreshed, nil
		}
		cont = page.Continuation
	}
}

const refreshPageSize = 50

func (s *itemEnrichmentService) dropStale(ctx context.Context, id domain.ItemID) error {
	return retryOnConflict(ctx, s.log, "item drop stale", func(ctx context.Context) error {
		current, err := s.repo.Get(ctx, nil, id.String())
		if err != nil {
			return err
		}
		if current == nil {
			return nil
		}
		if _, err := s.repo.Delete(ctx, nil, id.String(), current.Version); err != nil {
			return err
		}
		s.publishDelete(ctx, id.String())
		return nil
	})
}

// commit persists the decided row and emits the matching event. It is
// the single place the no-op, save and delete outcomes fork.
func (s *itemEnrichmentService) commit(ctx context.Context, id domain.ItemID, current, next *domain.ShortItem) error {
	if shortItemUnchanged(current, next) {
		s.log.Debug("no-op enrichment outcome", "item", id.String())
		return nil
	}

	if next.IsEmpty() {
		if current == nil {
			return nil
		}
		if _, err := s.repo.Delete(ctx, nil, id.String(), current.Version); err != nil {
			return err
		}
		s.publishDelete(ctx, id.String())
		return nil
	}

	var expected int64
	if current != nil {
		expected = current.Version
	}
	saved, err := s.repo.Save(ctx, nil, next, expected)
	if err != nil {
		return err
	}
	if err := s.sink.PublishUpdate(ctx, newUpdateEvent(domain.EntityKindItem, saved.ID, saved)); err != nil {
		s.log.Warn("item update event publish failed", "item", saved.ID, "error", err)
	}
	return nil
}

func (s *itemEnrichmentService) publishDelete(ctx context.Context, id string) {
	if err := s.sink.PublishDelete(ctx, newDeleteEvent(domain.EntityKindItem, id)); err != nil {
		s.log.Warn("item delete event publish failed", "item", id, "error", err)
	}
}

func cloneShortItem(s *domain.ShortItem) *domain.ShortItem {
	if s == nil {
		return nil
	}
	c := *s
	c.BestSellOrders = cloneOrderMap(s.BestSellOrders)
	c.BestBidOrders = cloneOrderMap(s.BestBidOrders)
	c.OriginOrders = cloneOriginOrders(s.OriginOrders)
	c.Auctions = append([]string(nil), s.Auctions...)
	return &c
}

// shortItemUnchanged compares rows modulo the bookkeeping columns, so a
// cycle that recomputed the same facts commits nothing.
func shortItemUnchanged(current, next *domain.ShortItem) bool {
	if current == nil {
		return next.IsEmpty()
	}
	return reflect.DeepEqual(normalizeShortItem(current), normalizeShortItem(next))
}

func normalizeShortItem(s *domain.ShortItem) domain.ShortItem {
	c := *s
	c.Version = 0
	c.LastUpdatedAt = time.Time{}
	if len(c.BestSellOrders) == 0 {
		c.BestSellOrders = nil
	}
	if len(c.BestBidOrders) == 0 {
		c.BestBidOrders = nil
	}
	if len(c.OriginOrders) == 0 {
		c.OriginOrders = nil
	}
	if len(c.Auctions) == 0 {
		c.Auctions = nil
	}
	return c
}
