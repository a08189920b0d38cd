package enrichment

import (
	"context"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/tokenmesh/marketplace-backend/internal/clients/chain"
	"github.com/tokenmesh/marketplace-backend/internal/domain"
	apperr "github.com/tokenmesh/marketplace-backend/internal/pkg/errors"
	"github.com/tokenmesh/marketplace-backend/internal/pkg/logger"
	"github.com/tokenmesh/marketplace-backend/internal/router"
)

type fakeCollectionRepo struct {
	mu   sync.Mutex
	rows map[string]*domain.ShortCollection
}

func newFakeCollectionRepo() *fakeCollectionRepo {
	return &fakeCollectionRepo{rows: map[string]*domain.ShortCollection{}}
}

func (r *fakeCollectionRepo) Get(_ context.Context, _ *gorm.DB, id string) (*domain.ShortCollection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	return cloneShortCollection(row), nil
}

func (r *fakeCollectionRepo) GetByIDs(_ context.Context, _ *gorm.DB, ids []string) ([]*domain.ShortCollection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ShortCollection
	for _, id := range ids {
		if row, ok := r.rows[id]; ok {
			out = append(out, cloneShortCollection(row))
		}
	}
	return out, nil
}

func (r *fakeCollectionRepo) Save(_ context.Context, _ *gorm.DB, row *domain.ShortCollection, expectedVersion int64) (*domain.ShortCollection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.rows[row.ID]
	if expectedVersion == 0 && ok {
		return nil, apperr.ErrVersionConflict
	}
	if expectedVersion > 0 && (!ok || existing.Version != expectedVersion) {
		return nil, apperr.ErrVersionConflict
	}
	row.Version = expectedVersion + 1
	r.rows[row.ID] = cloneShortCollection(row)
	return row, nil
}

func (r *fakeCollectionRepo) Delete(_ context.Context, _ *gorm.DB, id string, expectedVersion int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.rows[id]
	if !ok {
		return 0, nil
	}
	if expectedVersion > 0 && existing.Version != expectedVersion {
		return 0, apperr.ErrVersionConflict
	}
	delete(r.rows, id)
	return 1, nil
}

type fakeCollectionService struct {
	missing bool
}

func (f *fakeCollectionService) GetCollectionByID(_ context.Context, id domain.CollectionID) (*domain.Collection, error) {
	if f.missing {
		return nil, apperr.ErrNotFound
	}
	return &domain.Collection{ID: id}, nil
}

func (f *fakeCollectionService) GetCollectionsByOwner(context.Context, string, *string, int) (domain.Slice[domain.Collection], error) {
	return domain.Slice[domain.Collection]{}, nil
}

type collectionFixture struct {
	repo    *fakeCollectionRepo
	orders  *fakeOrderService
	colSvc  *fakeCollectionService
	sink    *recordingSink
	service CollectionEnrichmentService
	id      domain.CollectionID
}

func newCollectionFixture() *collectionFixture {
	log := logger.NewNop()
	f := &collectionFixture{
		repo:   newFakeCollectionRepo(),
		orders: &fakeOrderService{},
		colSvc: &fakeCollectionService{},
		sink:   &recordingSink{},
		id:     domain.CollectionID{Blockchain: domain.BlockchainEthereum, Address: "0xc"},
	}
	f.service = NewCollectionEnrichmentService(
		f.repo,
		router.New(map[domain.Blockchain]chain.CollectionService{domain.BlockchainEthereum: f.colSvc}, log),
		router.New(map[domain.Blockchain]chain.OrderService{domain.BlockchainEthereum: f.orders}, log),
		domain.PlatformTokenmesh,
		f.sink,
		log,
	)
	return f
}

func TestCollectionAdoptsFloorSell(t *testing.T) {
	f := newCollectionFixture()
	floor := activeSell("0x1", "0xmaker", 100)

	if err := f.service.ApplyOrderUpdate(context.Background(), f.id, &floor); err != nil {
		t.Fatalf("ApplyOrderUpdate: %v", err)
	}

	row, _ := f.repo.Get(context.Background(), nil, f.id.String())
	if row == nil || row.BestSellOrder == nil || row.BestSellOrder.OrderID != "ETHEREUM:0x1" {
		t.Fatalf("floor not adopted: %+v", row)
	}
	if len(f.sink.updates) != 1 {
		t.Fatalf("want one update event, got %d", len(f.sink.updates))
	}
}

func TestCollectionBidTracksCeiling(t *testing.T) {
	f := newCollectionFixture()

	low := activeBid("0xb1", 40)
	high := activeBid("0xb2", 60)
	if err := f.service.ApplyOrderUpdate(context.Background(), f.id, &low); err != nil {
		t.Fatalf("low bid: %v", err)
	}
	if err := f.service.ApplyOrderUpdate(context.Background(), f.id, &high); err != nil {
		t.Fatalf("high bid: %v", err)
	}

	row, _ := f.repo.Get(context.Background(), nil, f.id.String())
	if row == nil || row.BestBidOrder == nil || row.BestBidOrder.OrderID != "ETHEREUM:0xb2" {
		t.Fatalf("higher bid should win: %+v", row)
	}
}

func TestCollectionRefreshRebuildsTrackedCurrencies(t *testing.T) {
	f := newCollectionFixture()
	floor := activeSell("0x1", "0xmaker", 100)
	if err := f.service.ApplyOrderUpdate(context.Background(), f.id, &floor); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// The floor moved on-chain without us seeing an event.
	f.orders.setSells(activeSell("0x2", "0xother", 80))
	if err := f.service.Refresh(context.Background(), f.id); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	row, _ := f.repo.Get(context.Background(), nil, f.id.String())
	if row == nil || row.BestSellOrder == nil || row.BestSellOrder.OrderID != "ETHEREUM:0x2" {
		t.Fatalf("refresh missed the moved floor: %+v", row)
	}
}

func TestCollectionRefreshDropsStaleRow(t *testing.T) {
	f := newCollectionFixture()
	seeded := domain.EmptyShortCollection(f.id)
	seeded.Version = 1
	seeded.BestSellOrder = &domain.ShortOrder{OrderID: "ETHEREUM:0x1"}
	f.repo.rows[f.id.String()] = seeded
	f.colSvc.missing = true

	if err := f.service.Refresh(context.Background(), f.id); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if row, _ := f.repo.Get(context.Background(), nil, f.id.String()); row != nil {
		t.Fatalf("stale collection row survived")
	}
	if len(f.sink.deletes) != 1 {
		t.Fatalf("want one delete event, got %d", len(f.sink.deletes))
	}
}
