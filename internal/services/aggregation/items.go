// Package aggregation is the read side of the marketplace: it fans
// queries out across the enabled blockchains, merges the per-chain pages
// into one globally-ordered page, and decorates every returned entity
// with its cached best-order facts.
package aggregation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tokenmesh/marketplace-backend/internal/clients/chain"
	"github.com/tokenmesh/marketplace-backend/internal/continuation"
	"github.com/tokenmesh/marketplace-backend/internal/data/repos"
	"github.com/tokenmesh/marketplace-backend/internal/domain"
	"github.com/tokenmesh/marketplace-backend/internal/merger"
	"github.com/tokenmesh/marketplace-backend/internal/pkg/logger"
	"github.com/tokenmesh/marketplace-backend/internal/router"
)

const tracerName = "github.com/tokenmesh/marketplace-backend/internal/services/aggregation"

const defaultPageSize = 50

// ItemAggregationService serves items across every enabled blockchain.
type ItemAggregationService interface {
	GetItemByID(ctx context.Context, id domain.ItemID) (*domain.Item, error)
	GetAllItems(ctx context.Context, blockchains []domain.Blockchain, cont string, size int) (domain.Page[domain.Item], error)
	GetItemsByOwner(ctx context.Context, owner string, blockchains []domain.Blockchain, cont string, size int) (domain.Page[domain.Item], error)
	GetItemsByCollection(ctx context.Context, collection domain.CollectionID, cont string, size int) (domain.Page[domain.Item], error)
}

type itemAggregationService struct {
	items  *router.Router[chain.ItemService]
	repo   repos.ShortItemRepo
	merger *merger.Merger[domain.Item]
	tracer trace.Tracer
	log    *logger.Logger
}

func NewItemAggregationService(items *router.Router[chain.ItemService], repo repos.ShortItemRepo, baseLog *logger.Logger) ItemAggregationService {
	log := baseLog.With("service", "ItemAggregationService")
	return &itemAggregationService{
		items: items,
		repo:  repo,
		merger: merger.New(
			itemCompare,
			func(i domain.Item) string { return i.ID.String() },
			itemContinuation,
			log,
		),
		tracer: otel.Tracer(tracerName),
		log:    log,
	}
}

// itemCompare orders aggregated listings newest-first; ties fall through
// to the merger's id tie-break.
func itemCompare(a, b domain.Item) int {
	switch {
	case a.LastUpdatedAt.After(b.LastUpdatedAt):
		return -1
	case b.LastUpdatedAt.After(a.LastUpdatedAt):
		return 1
	default:
		return 0
	}
}

// itemContinuation is the value-derived resume point a chain indexer
// accepts: the sort value paired with the local id.
func itemContinuation(i domain.Item) string {
	return fmt.Sprintf("%d_%s", i.LastUpdatedAt.UnixMilli(), i.ID.String())
}

func (s *itemAggregationService) GetItemByID(ctx context.Context, id domain.ItemID) (*domain.Item, error) {
	ctx, span := s.tracer.Start(ctx, "ItemAggregation.GetItemByID",
		trace.WithAttributes(attribute.String("item.id", id.String())))
	defer span.End()

	svc, err := s.items.GetService(id.Blockchain)
	if err != nil {
		return nil, err
	}
	item, err := svc.GetItemByID(ctx, id)
	if err != nil {
		return nil, err
	}
	short, err := s.repo.Get(ctx, nil, id.String())
	if err != nil {
		return nil, err
	}
	decorateItem(item, short)
	return item, nil
}

func (s *itemAggregationService) GetAllItems(ctx context.Context, blockchains []domain.Blockchain, cont string, size int) (domain.Page[domain.Item], error) {
	ctx, span := s.tracer.Start(ctx, "ItemAggregation.GetAllItems")
	defer span.End()

	return s.merged(ctx, blockchains, cont, size, func(svc chain.ItemService) merger.Fetcher[domain.Item] {
		return svc.GetAllItems
	})
}

func (s *itemAggregationService) GetItemsByOwner(ctx context.Context, owner string, blockchains []domain.Blockchain, cont string, size int) (domain.Page[domain.Item], error) {
	ctx, span := s.tracer.Start(ctx, "ItemAggregation.GetItemsByOwner",
		trace.WithAttributes(attribute.String("owner", owner)))
	defer span.End()

	return s.merged(ctx, blockchains, cont, size, func(svc chain.ItemService) merger.Fetcher[domain.Item] {
		return func(ctx context.Context, cont *string, size int) (domain.Slice[domain.Item], error) {
			return svc.GetItemsByOwner(ctx, owner, cont, size)
		}
	})
}

func (s *itemAggregationService) GetItemsByCollection(ctx context.Context, collection domain.CollectionID, cont string, size int) (domain.Page[domain.Item], error) {
	ctx, span := s.tracer.Start(ctx, "ItemAggregation.GetItemsByCollection",
		trace.WithAttributes(attribute.String("collection.id", collection.String())))
	defer span.End()

	// A collection is chain-local, so this is the single-source case.
	svc, err := s.items.GetService(collection.Blockchain)
	if err != nil {
		return domain.Page[domain.Item]{}, err
	}
	if size <= 0 {
		size = defaultPageSize
	}
	var contPtr *string
	if cont != "" {
		contPtr = &cont
	}
	slice, err := svc.GetItemsByCollection(ctx, collection, contPtr, size)
	if err != nil {
		return domain.Page[domain.Item]{}, err
	}
	slice = s.merger.TrimPage(slice, size)
	entities, err := s.decorateAll(ctx, slice.Entities)
	if err != nil {
		return domain.Page[domain.Item]{}, err
	}
	return domain.Page[domain.Item]{
		Entities:     entities,
		Continuation: slice.Continuation,
		Total:        int64(len(entities)),
	}, nil
}

func (s *itemAggregationService) merged(ctx context.Context, blockchains []domain.Blockchain, cont string, size int, fetcherOf func(chain.ItemService) merger.Fetcher[domain.Item]) (domain.Page[domain.Item], error) {
	if size <= 0 {
		size = defaultPageSize
	}
	cursor := continuation.Parse(cont)

	fetchers := map[string]merger.Fetcher[domain.Item]{}
	for _, blockchain := range s.items.Enabled(blockchains) {
		svc, err := s.items.GetService(blockchain)
		if err != nil {
			return domain.Page[domain.Item]{}, err
		}
		fetchers[string(blockchain)] = fetcherOf(svc)
	}

	merged, next, err := s.merger.FetchAndMerge(ctx, fetchers, cursor, size)
	if err != nil {
		return domain.Page[domain.Item]{}, err
	}
	entities, err := s.decorateAll(ctx, merged)
	if err != nil {
		return domain.Page[domain.Item]{}, err
	}

	page := domain.Page[domain.Item]{Entities: entities, Total: int64(len(entities))}
	if !next.AllCompleted() {
		token := next.Format()
		if token != "" {
			page.Continuation = &token
		}
	}
	return page, nil
}

func (s *itemAggregationService) decorateAll(ctx context.Context, items []domain.Item) ([]domain.Item, error) {
	if len(items) == 0 {
		return items, nil
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID.String())
	}
	rows, err := s.repo.GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.ShortItem, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	for i := range items {
		decorateItem(&items[i], byID[items[i].ID.String()])
	}
	return items, nil
}

// decorateItem copies the cached enrichment facts onto the item. A nil
// short row means the item has no open orders; the zero values already
// say that.
func decorateItem(item *domain.Item, short *domain.ShortItem) {
	if item == nil || short == nil {
		return
	}
	item.BestSellOrder = short.BestSellOrder
	item.BestBidOrder = short.BestBidOrder
	item.Sellers = short.Sellers
	item.TotalStock = short.TotalStock
}
