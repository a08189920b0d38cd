package enrichment

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
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

// CollectionEnrichmentService maintains the collection-wide floor sell
// and ceiling bid rows.
type CollectionEnrichmentService interface {
	ApplyOrderUpdate(ctx context.Context, id domain.CollectionID, order *domain.Order) error
	Refresh(ctx context.Context, id domain.CollectionID) error
}

type collectionEnrichmentService struct {
	repo        repos.ShortCollectionRepo
	collections *router.Router[chain.CollectionService]
	orders      *router.Router[chain.OrderService]
	sellEval    *bestorder.Evaluator
	bidEval     *bestorder.Evaluator
	sellCmp     bestorder.Comparator
	bidCmp      bestorder.Comparator
	sink        EventSink
	tracer      trace.Tracer
	log         *logger.Logger
}

func NewCollectionEnrichmentService(
	repo repos.ShortCollectionRepo,
	collections *router.Router[chain.CollectionService],
	orders *router.Router[chain.OrderService],
	preferred domain.Platform,
	sink EventSink,
	baseLog *logger.Logger,
) CollectionEnrichmentService {
	log := baseLog.With("service", "CollectionEnrichmentService")
	sellCmp := bestorder.NewSellComparator(preferred)
	bidCmp := bestorder.NewBidComparator(preferred)
	return &collectionEnrichmentService{
		repo:        repo,
		collections: collections,
		orders:      orders,
		sellEval:    bestorder.NewEvaluator(sellCmp, log),
		bidEval:     bestorder.NewEvaluator(bidCmp, log),
		sellCmp:     sellCmp,
		bidCmp:      bidCmp,
		sink:        sink,
		tracer:      otel.Tracer(tracerName),
		log:         log,
	}
}

func (s *collectionEnrichmentService) ApplyOrderUpdate(ctx context.Context, id domain.CollectionID, order *domain.Order) error {
	ctx, span := s.tracer.Start(ctx, "CollectionEnrichment.ApplyOrderUpdate",
		trace.WithAttributes(attribute.String("collection.id", id.String())))
	defer span.End()

	if order == nil {
		return fmt.Errorf("collection %s: nil order update: %w", id, apperr.ErrInvalidArgument)
	}
	currency := order.CurrencyID()
	if currency == "" {
		return fmt.Errorf("order %s has no payment currency: %w", order.ID, apperr.ErrInvalidArgument)
	}

	return retryOnConflict(ctx, s.log, "collection order update", func(ctx context.Context) error {
		current, err := s.repo.Get(ctx, nil, id.String())
		if err != nil {
			return err
		}
		next := cloneShortCollection(current)
		if next == nil {
			next = domain.EmptyShortCollection(id)
		}

		if order.IsSell() {
			best, err := s.sellEval.OnOrderUpdate(ctx, next.BestSellOrders[currency], order, s.sellProvider(id))
			if err != nil {
				return err
			}
			next.BestSellOrders = withCurrency(next.BestSellOrders, currency, best)
			next.BestSellOrder = bestOfMap(next.BestSellOrders, s.sellCmp)
		} else {
			best, err := s.bidEval.OnOrderUpdate(ctx, next.BestBidOrders[currency], order, s.bidProvider(id))
			if err != nil {
				return err
			}
			next.BestBidOrders = withCurrency(next.BestBidOrders, currency, best)
			next.BestBidOrder = bestOfMap(next.BestBidOrders, s.bidCmp)
		}

		return s.commit(ctx, id, current, next)
	})
}

func (s *collectionEnrichmentService) sellProvider(id domain.CollectionID) bestorder.Provider {
	return func(ctx context.Context, currencyID string) (*domain.ShortOrder, error) {
		svc, err := s.orders.GetService(id.Blockchain)
		if err != nil {
			return nil, err
		}
		slice, err := svc.GetSellOrdersByCollection(ctx, id, currencyID, nil, 1)
		if err != nil {
			return nil, err
		}
		if len(slice.Entities) == 0 {
			return nil, nil
		}
		return slice.Entities[0].ToShort(), nil
	}
}

func (s *collectionEnrichmentService) bidProvider(id domain.CollectionID) bestorder.Provider {
	return func(ctx context.Context, currencyID string) (*domain.ShortOrder, error) {
		svc, err := s.orders.GetService(id.Blockchain)
		if err != nil {
			return nil, err
		}
		slice, err := svc.GetBidOrdersByCollection(ctx, id, currencyID, nil, 1)
		if err != nil {
			return nil, err
		}
		if len(slice.Entities) == 0 {
			return nil, nil
		}
		return slice.Entities[0].ToShort(), nil
	}
}

func (s *collectionEnrichmentService) Refresh(ctx context.Context, id domain.CollectionID) error {
	ctx, span := s.tracer.Start(ctx, "CollectionEnrichment.Refresh",
		trace.WithAttributes(attribute.String("collection.id", id.String())))
	defer span.End()

	colSvc, err := s.collections.GetService(id.Blockchain)
	if err != nil {
		return err
	}
	if _, err := colSvc.GetCollectionByID(ctx, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return s.dropStale(ctx, id)
		}
		return err
	}

	return retryOnConflict(ctx, s.log, "collection refresh", func(ctx context.Context) error {
		current, err := s.repo.Get(ctx, nil, id.String())
		if err != nil {
			return err
		}
		next, err := s.rebuild(ctx, id, current)
		if err != nil {
			return err
		}
		return s.commit(ctx, id, current, next)
	})
}

// rebuild refetches the overall floor and ceiling, plus every currency
// the current row tracks. There is no collection-level currency listing,
// so the overall fetch discovers currencies the row has never seen and
// the tracked set re-verifies the rest.
func (s *collectionEnrichmentService) rebuild(ctx context.Context, id domain.CollectionID, current *domain.ShortCollection) (*domain.ShortCollection, error) {
	next := domain.EmptyShortCollection(id)

	sellCurrencies := map[string]struct{}{}
	bidCurrencies := map[string]struct{}{}
	if current != nil {
		for c := range current.BestSellOrders {
			sellCurrencies[c] = struct{}{}
		}
		for c := range current.BestBidOrders {
			bidCurrencies[c] = struct{}{}
		}
	}

	overallSell, err := s.sellProvider(id)(ctx, "")
	if err != nil {
		return nil, err
	}
	if overallSell != nil {
		sellCurrencies[overallSell.CurrencyID] = struct{}{}
	}
	overallBid, err := s.bidProvider(id)(ctx, "")
	if err != nil {
		return nil, err
	}
	if overallBid != nil {
		bidCurrencies[overallBid.CurrencyID] = struct{}{}
	}

	for _, currency := range sortedKeys(sellCurrencies) {
		best, err := s.sellProvider(id)(ctx, currency)
		if err != nil {
			return nil, err
		}
		next.BestSellOrders = withCurrency(next.BestSellOrders, currency, best)
	}
	next.BestSellOrder = bestOfMap(next.BestSellOrders, s.sellCmp)

	for _, currency := range sortedKeys(bidCurrencies) {
		best, err := s.bidProvider(id)(ctx, currency)
		if err != nil {
			return nil, err
		}
		next.BestBidOrders = withCurrency(next.BestBidOrders, currency, best)
	}
	next.BestBidOrder = bestOfMap(next.BestBidOrders, s.bidCmp)

	return next, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *collectionEnrichmentService) dropStale(ctx context.Context, id domain.CollectionID) error {
	return retryOnConflict(ctx, s.log, "collection drop stale", func(ctx context.Context) error {
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

func (s *collectionEnrichmentService) commit(ctx context.Context, id domain.CollectionID, current, next *domain.ShortCollection) error {
	if shortCollectionUnchanged(current, next) {
		s.log.Debug("no-op enrichment outcome", "collection", id.String())
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
	if err := s.sink.PublishUpdate(ctx, newUpdateEvent(domain.EntityKindCollection, saved.ID, saved)); err != nil {
		s.log.Warn("collection update event publish failed", "collection", saved.ID, "error", err)
	}
	return nil
}

func (s *collectionEnrichmentService) publishDelete(ctx context.Context, id string) {
	if err := s.sink.PublishDelete(ctx, newDeleteEvent(domain.EntityKindCollection, id)); err != nil {
		s.log.Warn("collection delete event publish failed", "collection", id, "error", err)
	}
}

func cloneShortCollection(s *domain.ShortCollection) *domain.ShortCollection {
	if s == nil {
		return nil
	}
	c := *s
	c.BestSellOrders = cloneOrderMap(s.BestSellOrders)
	c.BestBidOrders = cloneOrderMap(s.BestBidOrders)
	return &c
}

func shortCollectionUnchanged(current, next *domain.ShortCollection) bool {
	if current == nil {
		return next.IsEmpty()
	}
	return reflect.DeepEqual(normalizeShortCollection(current), normalizeShortCollection(next))
}

func normalizeShortCollection(s *domain.ShortCollection) domain.ShortCollection {
	c := *s
	c.Version = 0
	c.LastUpdatedAt = time.Time{}
	if len(c.BestSellOrders) == 0 {
		c.BestSellOrders = nil
	}
	if len(c.BestBidOrders) == 0 {
		c.BestBidOrders = nil
	}
	return c
}
