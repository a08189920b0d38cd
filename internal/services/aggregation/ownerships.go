package aggregation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tokenmesh/marketplace-backend/internal/clients/chain"
	"github.com/tokenmesh/marketplace-backend/internal/data/repos"
	"github.com/tokenmesh/marketplace-backend/internal/domain"
	"github.com/tokenmesh/marketplace-backend/internal/pkg/logger"
	"github.com/tokenmesh/marketplace-backend/internal/router"
)

// OwnershipAggregationService serves ownerships with their cached
// sell-side enrichment attached. Ownership queries are chain-local: the
// item id pins the blockchain.
type OwnershipAggregationService interface {
	GetOwnershipByID(ctx context.Context, id domain.OwnershipID) (*domain.Ownership, error)
	GetOwnershipsByItem(ctx context.Context, item domain.ItemID, cont string, size int) (domain.Page[domain.Ownership], error)
}

type ownershipAggregationService struct {
	ownerships *router.Router[chain.OwnershipService]
	repo       repos.ShortOwnershipRepo
	tracer     trace.Tracer
	log        *logger.Logger
}

func NewOwnershipAggregationService(ownerships *router.Router[chain.OwnershipService], repo repos.ShortOwnershipRepo, baseLog *logger.Logger) OwnershipAggregationService {
	return &ownershipAggregationService{
		ownerships: ownerships,
		repo:       repo,
		tracer:     otel.Tracer(tracerName),
		log:        baseLog.With("service", "OwnershipAggregationService"),
	}
}

func (s *ownershipAggregationService) GetOwnershipByID(ctx context.Context, id domain.OwnershipID) (*domain.Ownership, error) {
	ctx, span := s.tracer.Start(ctx, "OwnershipAggregation.GetOwnershipByID",
		trace.WithAttributes(attribute.String("ownership.id", id.String())))
	defer span.End()

	svc, err := s.ownerships.GetService(id.Blockchain)
	if err != nil {
		return nil, err
	}
	ownership, err := svc.GetOwnershipByID(ctx, id)
	if err != nil {
		return nil, err
	}
	short, err := s.repo.Get(ctx, nil, id.String())
	if err != nil {
		return nil, err
	}
	if short != nil {
		ownership.BestSellOrder = short.BestSellOrder
	}
	return ownership, nil
}

func (s *ownershipAggregationService) GetOwnershipsByItem(ctx context.Context, item domain.ItemID, cont string, size int) (domain.Page[domain.Ownership], error) {
	ctx, span := s.tracer.Start(ctx, "OwnershipAggregation.GetOwnershipsByItem",
		trace.WithAttributes(attribute.String("item.id", item.String())))
	defer span.End()

	svc, err := s.ownerships.GetService(item.Blockchain)
	if err != nil {
		return domain.Page[domain.Ownership]{}, err
	}
	if size <= 0 {
		size = defaultPageSize
	}
	var contPtr *string
	if cont != "" {
		contPtr = &cont
	}
	slice, err := svc.GetOwnershipsByItem(ctx, item, contPtr, size)
	if err != nil {
		return domain.Page[domain.Ownership]{}, err
	}

	rows, err := s.repo.GetByItem(ctx, nil, item.String())
	if err != nil {
		return domain.Page[domain.Ownership]{}, err
	}
	byID := make(map[string]*domain.ShortOwnership, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	for i := range slice.Entities {
		if short := byID[slice.Entities[i].ID.String()]; short != nil {
			slice.Entities[i].BestSellOrder = short.BestSellOrder
		}
	}

	return domain.Page[domain.Ownership]{
		Entities:     slice.Entities,
		Continuation: slice.Continuation,
		Total:        int64(len(slice.Entities)),
	}, nil
}
