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

// CollectionAggregationService serves collections with their cached
// floor/ceiling orders attached.
type CollectionAggregationService interface {
	GetCollectionByID(ctx context.Context, id domain.CollectionID) (*domain.Collection, error)
	GetCollectionsByOwner(ctx context.Context, owner string, blockchains []domain.Blockchain, cont string, size int) (domain.Page[domain.Collection], error)
}

type collectionAggregationService struct {
	collections *router.Router[chain.CollectionService]
	repo        repos.ShortCollectionRepo
	merger      *merger.Merger[domain.Collection]
	tracer      trace.Tracer
	log         *logger.Logger
}

func NewCollectionAggregationService(collections *router.Router[chain.CollectionService], repo repos.ShortCollectionRepo, baseLog *logger.Logger) CollectionAggregationService {
	log := baseLog.With("service", "CollectionAggregationService")
	return &collectionAggregationService{
		collections: collections,
		repo:        repo,
		merger: merger.New(
			collectionCompare,
			func(c domain.Collection) string { return c.ID.String() },
			collectionContinuation,
			log,
		),
		tracer: otel.Tracer(tracerName),
		log:    log,
	}
}

func collectionCompare(a, b domain.Collection) int {
	switch {
	case a.LastUpdatedAt.After(b.LastUpdatedAt):
		return -1
	case b.LastUpdatedAt.After(a.LastUpdatedAt):
		return 1
	default:
		return 0
	}
}

func collectionContinuation(c domain.Collection) string {
	return fmt.Sprintf("%d_%s", c.LastUpdatedAt.UnixMilli(), c.ID.String())
}

func (s *collectionAggregationService) GetCollectionByID(ctx context.Context, id domain.CollectionID) (*domain.Collection, error) {
	ctx, span := s.tracer.Start(ctx, "CollectionAggregation.GetCollectionByID",
		trace.WithAttributes(attribute.String("collection.id", id.String())))
	defer span.End()

	svc, err := s.collections.GetService(id.Blockchain)
	if err != nil {
		return nil, err
	}
	collection, err := svc.GetCollectionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	short, err := s.repo.Get(ctx, nil, id.String())
	if err != nil {
		return nil, err
	}
	if short != nil {
		collection.BestSellOrder = short.BestSellOrder
		collection.BestBidOrder = short.BestBidOrder
	}
	return collection, nil
}

func (s *collectionAggregationService) GetCollectionsByOwner(ctx context.Context, owner string, blockchains []domain.Blockchain, cont string, size int) (domain.Page[domain.Collection], error) {
	ctx, span := s.tracer.Start(ctx, "CollectionAggregation.GetCollectionsByOwner",
		trace.WithAttributes(attribute.String("owner", owner)))
	defer span.End()

	if size <= 0 {
		size = defaultPageSize
	}
	cursor := continuation.Parse(cont)

	fetchers := map[string]merger.Fetcher[domain.Collection]{}
	for _, blockchain := range s.collections.Enabled(blockchains) {
		svc, err := s.collections.GetService(blockchain)
		if err != nil {
			return domain.Page[domain.Collection]{}, err
		}
		fetchers[string(blockchain)] = func(ctx context.Context, cont *string, size int) (domain.Slice[domain.Collection], error) {
			return svc.GetCollectionsByOwner(ctx, owner, cont, size)
		}
	}

	merged, next, err := s.merger.FetchAndMerge(ctx, fetchers, cursor, size)
	if err != nil {
		return domain.Page[domain.Collection]{}, err
	}

	ids := make([]string, 0, len(merged))
	for _, c := range merged {
		ids = append(ids, c.ID.String())
	}
	rows, err := s.repo.GetByIDs(ctx, nil, ids)
	if err != nil {
		return domain.Page[domain.Collection]{}, err
	}
	byID := make(map[string]*domain.ShortCollection, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	for i := range merged {
		if short := byID[merged[i].ID.String()]; short != nil {
			merged[i].BestSellOrder = short.BestSellOrder
			merged[i].BestBidOrder = short.BestBidOrder
		}
	}

	page := domain.Page[domain.Collection]{Entities: merged, Total: int64(len(merged))}
	if !next.AllCompleted() {
		token := next.Format()
		if token != "" {
			page.Continuation = &token
		}
	}
	return page, nil
}
