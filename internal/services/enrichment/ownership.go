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

// OwnershipEnrichmentService maintains the sell-side cache rows of
// ownerships. Only sell orders placed by the owning wallet are relevant;
// everything else is a no-op.
type OwnershipEnrichmentService interface {
	ApplyOrderUpdate(ctx context.Context, id domain.OwnershipID, order *domain.Order) error
	Refresh(ctx context.Context, id domain.OwnershipID) error
}

type ownershipEnrichmentService struct {
	repo       repos.ShortOwnershipRepo
	ownerships *router.Router[chain.OwnershipService]
	orders     *router.Router[chain.OrderService]
	sellEval   *bestorder.Evaluator
	sellCmp    bestorder.Comparator
	sink       EventSink
	tracer     trace.Tracer
	log        *logger.Logger
}

func NewOwnershipEnrichmentService(
	repo repos.ShortOwnershipRepo,
	ownerships *router.Router[chain.OwnershipService],
	orders *router.Router[chain.OrderService],
	preferred domain.Platform,
	sink EventSink,
	baseLog *logger.Logger,
) OwnershipEnrichmentService {
	log := baseLog.With("service", "OwnershipEnrichmentService")
	sellCmp := bestorder.NewSellComparator(preferred)
	return &ownershipEnrichmentService{
		repo:       repo,
		ownerships: ownerships,
		orders:     orders,
		sellEval:   bestorder.NewEvaluator(sellCmp, log),
		sellCmp:    sellCmp,
		sink:       sink,
		tracer:     otel.Tracer(tracerName),
		log:        log,
	}
}

func (s *ownershipEnrichmentService) ApplyOrderUpdate(ctx context.Context, id domain.OwnershipID, order *domain.Order) error {
	ctx, span := s.tracer.Start(ctx, "OwnershipEnrichment.ApplyOrderUpdate",
		trace.WithAttributes(attribute.String("ownership.id", id.String())))
	defer span.End()

	if order == nil {
		return fmt.Errorf("ownership %s: nil order update: %w", id, apperr.ErrInvalidArgument)
	}
	if !order.IsSell() {
		s.log.Debug("bid update ignored for ownership", "ownership", id.String(), "order", order.ID.String())
		return nil
	}
	if order.Maker != id.Owner {
		s.log.Debug("foreign maker ignored for ownership", "ownership", id.String(), "maker", order.Maker)
		return nil
	}
	currency := order.SellCurrencyID()
	if currency == "" {
		return fmt.Errorf("order %s has no payment currency: %w", order.ID, apperr.ErrInvalidArgument)
	}

	return retryOnConflict(ctx, s.log, "ownership order update", func(ctx context.Context) error {
		current, err := s.repo.Get(ctx, nil, id.String())
		if err != nil {
			return err
		}
		next := cloneShortOwnership(current)
		if next == nil {
			next = domain.EmptyShortOwnership(id)
		}

		best, err := s.sellEval.OnOrderUpdate(ctx, next.BestSellOrders[currency], order, s.sellProvider(id, ""))
		if err != nil {
			return err
		}
		next.BestSellOrders = withCurrency(next.BestSellOrders, currency, best)
		next.BestSellOrder = bestOfMap(next.BestSellOrders, s.sellCmp)

		for _, origin := range order.Origins {
			list, i := originEntry(next.OriginOrders, origin)
			originBest, err := s.sellEval.OnOrderUpdate(ctx, list[i].BestSellOrder, order, s.sellProvider(id, origin))
			if err != nil {
				return err
			}
			list[i].BestSellOrder = originBest
			next.OriginOrders = list
		}
		next.OriginOrders = domain.PruneOriginOrders(next.OriginOrders)

		return s.commit(ctx, id, current, next)
	})
}

// sellProvider scopes the source-of-truth query to orders placed by the
// owning wallet.
func (s *ownershipEnrichmentService) sellProvider(id domain.OwnershipID, origin string) bestorder.Provider {
	return func(ctx context.Context, currencyID string) (*domain.ShortOrder, error) {
		svc, err := s.orders.GetService(id.Blockchain)
		if err != nil {
			return nil, err
		}
		slice, err := svc.GetSellOrdersByItem(ctx, id.ItemID(), id.Owner, currencyID, origin, nil, 1)
		if err != nil {
			return nil, err
		}
		if len(slice.Entities) == 0 {
			return nil, nil
		}
		return slice.Entities[0].ToShort(), nil
	}
}

func (s *ownershipEnrichmentService) Refresh(ctx context.Context, id domain.OwnershipID) error {
	ctx, span := s.tracer.Start(ctx, "OwnershipEnrichment.Refresh",
		trace.WithAttributes(attribute.String("ownership.id", id.String())))
	defer span.End()

	ownSvc, err := s.ownerships.GetService(id.Blockchain)
	if err != nil {
		return err
	}
	if _, err := ownSvc.GetOwnershipByID(ctx, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return s.dropStale(ctx, id)
		}
		return err
	}

	orderSvc, err := s.orders.GetService(id.Blockchain)
	if err != nil {
		return err
	}
	currencies, err := orderSvc.GetSellCurrencies(ctx, id.ItemID())
	if err != nil {
		return fmt.Errorf("sell currencies for %s: %w", id, err)
	}

	rebuilt := domain.EmptyShortOwnership(id)
	for _, currency := range currencies {
		best, err := s.sellProvider(id, "")(ctx, currency)
		if err != nil {
			return err
		}
		rebuilt.BestSellOrders = withCurrency(rebuilt.BestSellOrders, currency, best)
	}
	rebuilt.BestSellOrder = bestOfMap(rebuilt.BestSellOrders, s.sellCmp)

	return retryOnConflict(ctx, s.log, "ownership refresh", func(ctx context.Context) error {
		current, err := s.repo.Get(ctx, nil, id.String())
		if err != nil {
			return err
		}
		next := cloneShortOwnership(rebuilt)
		if current != nil {
			next.OriginOrders, err = s.refreshOrigins(ctx, id, current.OriginOrders)
			if err != nil {
				return err
			}
		}
		return s.commit(ctx, id, current, next)
	})
}

func (s *ownershipEnrichmentService) refreshOrigins(ctx context.Context, id domain.OwnershipID, tracked []domain.OriginOrders) ([]domain.OriginOrders, error) {
	var out []domain.OriginOrders
	for _, oo := range tracked {
		best, err := s.sellProvider(id, oo.Origin)(ctx, "")
		if err != nil {
			return nil, err
		}
		out = append(out, domain.OriginOrders{Origin: oo.Origin, BestSellOrder: best})
	}
	return domain.PruneOriginOrders(out), nil
}

func (s *ownershipEnrichmentService) dropStale(ctx context.Context, id domain.OwnershipID) error {
	return retryOnConflict(ctx, s.log, "ownership drop stale", func(ctx context.Context) error {
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

func (s *ownershipEnrichmentService) commit(ctx context.Context, id domain.OwnershipID, current, next *domain.ShortOwnership) error {
	if shortOwnershipUnchanged(current, next) {
		s.log.Debug("no-op enrichment outcome", "ownership", id.String())
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
	if err := s.sink.PublishUpdate(ctx, newUpdateEvent(domain.EntityKindOwnership, saved.ID, saved)); err != nil {
		s.log.Warn("ownership update event publish failed", "ownership", saved.ID, "error", err)
	}
	return nil
}

func (s *ownershipEnrichmentService) publishDelete(ctx context.Context, id string) {
	if err := s.sink.PublishDelete(ctx, newDeleteEvent(domain.EntityKindOwnership, id)); err != nil {
		s.log.Warn("ownership delete event publish failed", "ownership", id, "error", err)
	}
}

func cloneShortOwnership(s *domain.ShortOwnership) *domain.ShortOwnership {
	if s == nil {
		return nil
	}
	c := *s
	c.BestSellOrders = cloneOrderMap(s.BestSellOrders)
	c.OriginOrders = cloneOriginOrders(s.OriginOrders)
	return &c
}

func shortOwnershipUnchanged(current, next *domain.ShortOwnership) bool {
	if current == nil {
		return next.IsEmpty()
	}
	return reflect.DeepEqual(normalizeShortOwnership(current), normalizeShortOwnership(next))
}

func normalizeShortOwnership(s *domain.ShortOwnership) domain.ShortOwnership {
	c := *s
	c.Version = 0
	c.LastUpdatedAt = time.Time{}
	if len(c.BestSellOrders) == 0 {
		c.BestSellOrders = nil
	}
	if len(c.OriginOrders) == 0 {
		c.OriginOrders = nil
	}
	return c
}
