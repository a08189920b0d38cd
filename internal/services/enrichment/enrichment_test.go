package enrichment

import (
	"context"
	"strings"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/tokenmesh/marketplace-backend/internal/clients/chain"
	"github.com/tokenmesh/marketplace-backend/internal/domain"
	apperr "github.com/tokenmesh/marketplace-backend/internal/pkg/errors"
	"github.com/tokenmesh/marketplace-backend/internal/pkg/logger"
	"github.com/tokenmesh/marketplace-backend/internal/router"
)

// --- in-memory fakes ---

// fakeItemRepo implements the same compare-and-swap contract as the gorm
// repo, entirely in memory. onSave, when set, runs once before the next
// save attempt so tests can interleave a concurrent writer.
type fakeItemRepo struct {
	mu     sync.Mutex
	rows   map[string]*domain.ShortItem
	onSave func()
	saves  int
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{rows: map[string]*domain.ShortItem{}}
}

func (r *fakeItemRepo) seed(row *domain.ShortItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[row.ID] = cloneShortItem(row)
}

func (r *fakeItemRepo) Get(_ context.Context, _ *gorm.DB, id string) (*domain.ShortItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	return cloneShortItem(row), nil
}

func (r *fakeItemRepo) GetByIDs(_ context.Context, _ *gorm.DB, ids []string) ([]*domain.ShortItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ShortItem
	for _, id := range ids {
		if row, ok := r.rows[id]; ok {
			out = append(out, cloneShortItem(row))
		}
	}
	return out, nil
}

func (r *fakeItemRepo) Save(_ context.Context, _ *gorm.DB, row *domain.ShortItem, expectedVersion int64) (*domain.ShortItem, error) {
	if hook := r.takeHook(); hook != nil {
		hook()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	existing, ok := r.rows[row.ID]
	if expectedVersion == 0 && ok {
		return nil, apperr.ErrVersionConflict
	}
	if expectedVersion > 0 && (!ok || existing.Version != expectedVersion) {
		return nil, apperr.ErrVersionConflict
	}
	row.Version = expectedVersion + 1
	r.rows[row.ID] = cloneShortItem(row)
	return row, nil
}

func (r *fakeItemRepo) Delete(_ context.Context, _ *gorm.DB, id string, expectedVersion int64) (int64, error) {
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

func (r *fakeItemRepo) takeHook() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	hook := r.onSave
	r.onSave = nil
	return hook
}

type fakeOwnershipRepo struct {
	mu   sync.Mutex
	rows map[string]*domain.ShortOwnership
}

func newFakeOwnershipRepo() *fakeOwnershipRepo {
	return &fakeOwnershipRepo{rows: map[string]*domain.ShortOwnership{}}
}

func (r *fakeOwnershipRepo) Get(_ context.Context, _ *gorm.DB, id string) (*domain.ShortOwnership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	return cloneShortOwnership(row), nil
}

func (r *fakeOwnershipRepo) GetByItem(_ context.Context, _ *gorm.DB, itemID string) ([]*domain.ShortOwnership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ShortOwnership
	for id, row := range r.rows {
		if strings.HasPrefix(id, itemID+":") {
			out = append(out, cloneShortOwnership(row))
		}
	}
	return out, nil
}

func (r *fakeOwnershipRepo) Save(_ context.Context, _ *gorm.DB, row *domain.ShortOwnership, expectedVersion int64) (*domain.ShortOwnership, error) {
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
	r.rows[row.ID] = cloneShortOwnership(row)
	return row, nil
}

func (r *fakeOwnershipRepo) Delete(_ context.Context, _ *gorm.DB, id string, expectedVersion int64) (int64, error) {
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

// fakeOrderService serves canned orders, best-first, honoring the
// maker/currency/origin filters.
type fakeOrderService struct {
	mu    sync.Mutex
	sells []domain.Order
	bids  []domain.Order
}

func (f *fakeOrderService) setSells(orders ...domain.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sells = orders
}

func (f *fakeOrderService) GetOrderByID(_ context.Context, id domain.OrderID) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range append(append([]domain.Order{}, f.sells...), f.bids...) {
		if o.ID == id {
			o := o
			return &o, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func matchOrder(o domain.Order, maker, currencyID, origin string) bool {
	if maker != "" && o.Maker != maker {
		return false
	}
	if currencyID != "" && o.CurrencyID() != currencyID {
		return false
	}
	if origin != "" {
		found := false
		for _, og := range o.Origins {
			if og == origin {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func take(orders []domain.Order, size int, match func(domain.Order) bool) domain.Slice[domain.Order] {
	var out []domain.Order
	for _, o := range orders {
		if match(o) {
			out = append(out, o)
		}
		if size > 0 && len(out) == size {
			break
		}
	}
	return domain.Slice[domain.Order]{Entities: out}
}

func (f *fakeOrderService) GetSellOrdersByItem(_ context.Context, _ domain.ItemID, maker, currencyID, origin string, _ *string, size int) (domain.Slice[domain.Order], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return take(f.sells, size, func(o domain.Order) bool { return matchOrder(o, maker, currencyID, origin) }), nil
}

func (f *fakeOrderService) GetBidOrdersByItem(_ context.Context, _ domain.ItemID, currencyID, origin string, _ *string, size int) (domain.Slice[domain.Order], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return take(f.bids, size, func(o domain.Order) bool { return matchOrder(o, "", currencyID, origin) }), nil
}

func (f *fakeOrderService) GetSellOrdersByCollection(_ context.Context, _ domain.CollectionID, currencyID string, _ *string, size int) (domain.Slice[domain.Order], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return take(f.sells, size, func(o domain.Order) bool { return matchOrder(o, "", currencyID, "") }), nil
}

func (f *fakeOrderService) GetBidOrdersByCollection(_ context.Context, _ domain.CollectionID, currencyID string, _ *string, size int) (domain.Slice[domain.Order], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return take(f.bids, size, func(o domain.Order) bool { return matchOrder(o, "", currencyID, "") }), nil
}

func (f *fakeOrderService) GetSellCurrencies(_ context.Context, _ domain.ItemID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return distinctCurrencies(f.sells), nil
}

func (f *fakeOrderService) GetBidCurrencies(_ context.Context, _ domain.ItemID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return distinctCurrencies(f.bids), nil
}

func distinctCurrencies(orders []domain.Order) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, o := range orders {
		c := o.CurrencyID()
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

type fakeItemService struct {
	missing bool
	items   []domain.Item
}

func (f *fakeItemService) GetItemByID(_ context.Context, id domain.ItemID) (*domain.Item, error) {
	if f.missing {
		return nil, apperr.ErrNotFound
	}
	return &domain.Item{ID: id}, nil
}

func (f *fakeItemService) GetAllItems(context.Context, *string, int) (domain.Slice[domain.Item], error) {
	return domain.Slice[domain.Item]{Entities: f.items}, nil
}

func (f *fakeItemService) GetItemsByOwner(context.Context, string, *string, int) (domain.Slice[domain.Item], error) {
	return domain.Slice[domain.Item]{Entities: f.items}, nil
}

func (f *fakeItemService) GetItemsByCollection(context.Context, domain.CollectionID, *string, int) (domain.Slice[domain.Item], error) {
	return domain.Slice[domain.Item]{Entities: f.items}, nil
}

type fakeOwnershipService struct {
	missing bool
	stats   chain.SellStats
}

func (f *fakeOwnershipService) GetOwnershipByID(_ context.Context, id domain.OwnershipID) (*domain.Ownership, error) {
	if f.missing {
		return nil, apperr.ErrNotFound
	}
	return &domain.Ownership{ID: id}, nil
}

func (f *fakeOwnershipService) GetOwnershipsByItem(context.Context, domain.ItemID, *string, int) (domain.Slice[domain.Ownership], error) {
	return domain.Slice[domain.Ownership]{}, nil
}

func (f *fakeOwnershipService) GetItemSellStats(context.Context, domain.ItemID) (chain.SellStats, error) {
	return f.stats, nil
}

type recordingSink struct {
	mu      sync.Mutex
	updates []domain.EntityUpdateEvent
	deletes []domain.EntityDeleteEvent
}

func (s *recordingSink) PublishUpdate(_ context.Context, ev domain.EntityUpdateEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, ev)
	return nil
}

func (s *recordingSink) PublishDelete(_ context.Context, ev domain.EntityDeleteEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, ev)
	return nil
}

// --- fixture ---

type itemFixture struct {
	repo      *fakeItemRepo
	orders    *fakeOrderService
	itemSvc   *fakeItemService
	ownSvc    *fakeOwnershipService
	sink      *recordingSink
	service   ItemEnrichmentService
	id        domain.ItemID
}

func newItemFixture() *itemFixture {
	log := logger.NewNop()
	f := &itemFixture{
		repo:    newFakeItemRepo(),
		orders:  &fakeOrderService{},
		itemSvc: &fakeItemService{},
		ownSvc:  &fakeOwnershipService{},
		sink:    &recordingSink{},
		id:      domain.ItemID{Blockchain: domain.BlockchainEthereum, Contract: "0xc", TokenID: "1"},
	}
	f.service = NewItemEnrichmentService(
		f.repo,
		router.New(map[domain.Blockchain]chain.ItemService{domain.BlockchainEthereum: f.itemSvc}, log),
		router.New(map[domain.Blockchain]chain.OrderService{domain.BlockchainEthereum: f.orders}, log),
		router.New(map[domain.Blockchain]chain.OwnershipService{domain.BlockchainEthereum: f.ownSvc}, log),
		domain.PlatformTokenmesh,
		f.sink,
		log,
	)
	return f
}

func ptr(v float64) *float64 { return &v }

func activeSell(hash, maker string, priceUSD float64, origins ...string) domain.Order {
	return domain.Order{
		ID:       domain.OrderID{Blockchain: domain.BlockchainEthereum, Value: hash},
		Platform: domain.PlatformOpenSea,
		Status:   domain.OrderStatusActive,
		Maker:    maker,
		Make: domain.Asset{
			Type:  domain.NFTAssetType{Blockchain: domain.BlockchainEthereum, Contract: "0xc", TokenID: "1"},
			Value: 1,
		},
		Take: domain.Asset{
			Type:  domain.NativeAssetType{Blockchain: domain.BlockchainEthereum},
			Value: priceUSD,
		},
		MakeStock:    1,
		TakePrice:    ptr(priceUSD),
		TakePriceUSD: ptr(priceUSD),
		Origins:      origins,
	}
}

func activeBid(hash string, priceUSD float64) domain.Order {
	return domain.Order{
		ID:       domain.OrderID{Blockchain: domain.BlockchainEthereum, Value: hash},
		Platform: domain.PlatformOpenSea,
		Status:   domain.OrderStatusActive,
		Maker:    "0xbidder",
		Make: domain.Asset{
			Type:  domain.NativeAssetType{Blockchain: domain.BlockchainEthereum},
			Value: priceUSD,
		},
		Take: domain.Asset{
			Type:  domain.NFTAssetType{Blockchain: domain.BlockchainEthereum, Contract: "0xc", TokenID: "1"},
			Value: 1,
		},
		MakeStock:    priceUSD,
		MakePrice:    ptr(priceUSD),
		MakePriceUSD: ptr(priceUSD),
	}
}

func dead(o domain.Order) domain.Order {
	o.Status = domain.OrderStatusCancelled
	return o
}

// --- item tests ---

func TestItemOrderUpdateCreatesRow(t *testing.T) {
	f := newItemFixture()
	order := activeSell("0x1", "0xmaker", 100, "market.example")

	if err := f.service.ApplyOrderUpdate(context.Background(), f.id, &order); err != nil {
		t.Fatalf("ApplyOrderUpdate: %v", err)
	}

	row, _ := f.repo.Get(context.Background(), nil, f.id.String())
	if row == nil {
		t.Fatalf("row not created")
	}
	if row.Version != 1 {
		t.Fatalf("version = %d, want 1", row.Version)
	}
	if row.BestSellOrder == nil || row.BestSellOrder.OrderID != "ETHEREUM:0x1" {
		t.Fatalf("best sell = %+v", row.BestSellOrder)
	}
	if got := row.BestSellOrders["ETHEREUM:NATIVE"]; got == nil || got.OrderID != "ETHEREUM:0x1" {
		t.Fatalf("currency map entry missing: %+v", row.BestSellOrders)
	}
	if len(row.OriginOrders) != 1 || row.OriginOrders[0].Origin != "market.example" || row.OriginOrders[0].BestSellOrder == nil {
		t.Fatalf("origin orders = %+v", row.OriginOrders)
	}
	if len(f.sink.updates) != 1 || len(f.sink.deletes) != 0 {
		t.Fatalf("events: %d updates, %d deletes", len(f.sink.updates), len(f.sink.deletes))
	}
}

func TestItemOrderUpdateNoOpEmitsNothing(t *testing.T) {
	f := newItemFixture()
	order := activeSell("0x1", "0xmaker", 100)

	for i := 0; i < 2; i++ {
		if err := f.service.ApplyOrderUpdate(context.Background(), f.id, &order); err != nil {
			t.Fatalf("apply %d: %v", i, err)
		}
	}

	row, _ := f.repo.Get(context.Background(), nil, f.id.String())
	if row.Version != 1 {
		t.Fatalf("no-op must not bump version, got %d", row.Version)
	}
	if len(f.sink.updates) != 1 {
		t.Fatalf("no-op emitted an event: %d updates", len(f.sink.updates))
	}
}

func TestItemDeadBestOrderPrunesRow(t *testing.T) {
	f := newItemFixture()
	order := activeSell("0x1", "0xmaker", 100, "market.example")
	if err := f.service.ApplyOrderUpdate(context.Background(), f.id, &order); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Source of truth has nothing anymore; the dead event must empty and
	// drop the row.
	f.orders.setSells()
	gone := dead(order)
	if err := f.service.ApplyOrderUpdate(context.Background(), f.id, &gone); err != nil {
		t.Fatalf("dead update: %v", err)
	}

	if row, _ := f.repo.Get(context.Background(), nil, f.id.String()); row != nil {
		t.Fatalf("row should be gone, got %+v", row)
	}
	if len(f.sink.deletes) != 1 {
		t.Fatalf("want exactly one delete event, got %d", len(f.sink.deletes))
	}
}

func TestItemDeadBestOrderReplacedFromSourceOfTruth(t *testing.T) {
	f := newItemFixture()
	best := activeSell("0x1", "0xmaker", 100)
	if err := f.service.ApplyOrderUpdate(context.Background(), f.id, &best); err != nil {
		t.Fatalf("seed: %v", err)
	}

	runnerUp := activeSell("0x2", "0xother", 120)
	f.orders.setSells(runnerUp)

	gone := dead(best)
	if err := f.service.ApplyOrderUpdate(context.Background(), f.id, &gone); err != nil {
		t.Fatalf("dead update: %v", err)
	}

	row, _ := f.repo.Get(context.Background(), nil, f.id.String())
	if row == nil || row.BestSellOrder == nil || row.BestSellOrder.OrderID != "ETHEREUM:0x2" {
		t.Fatalf("runner-up not promoted: %+v", row)
	}
}

func TestItemVersionConflictRetriesAgainstFreshState(t *testing.T) {
	f := newItemFixture()
	seeded := domain.EmptyShortItem(f.id)
	seeded.Version = 5
	seeded.BestBidOrders = map[string]*domain.ShortOrder{
		"ETHEREUM:NATIVE": {OrderID: "ETHEREUM:0xbid", Platform: domain.PlatformOpenSea, CurrencyID: "ETHEREUM:NATIVE", MakePriceUSD: ptr(40)},
	}
	seeded.BestBidOrder = seeded.BestBidOrders["ETHEREUM:NATIVE"]
	f.repo.seed(seeded)

	// A concurrent writer lands between our read and our save: it bumps
	// the version and records sell stats. The retried cycle must keep
	// its work.
	f.repo.onSave = func() {
		f.repo.mu.Lock()
		defer f.repo.mu.Unlock()
		row := f.repo.rows[f.id.String()]
		row.Version = 6
		row.Sellers = 3
		row.TotalStock = 7
	}

	order := activeSell("0x1", "0xmaker", 100)
	if err := f.service.ApplyOrderUpdate(context.Background(), f.id, &order); err != nil {
		t.Fatalf("ApplyOrderUpdate: %v", err)
	}

	row, _ := f.repo.Get(context.Background(), nil, f.id.String())
	if row.Version != 7 {
		t.Fatalf("version = %d, want 7 (conflict then success)", row.Version)
	}
	if row.Sellers != 3 || row.TotalStock != 7 {
		t.Fatalf("concurrent writer's stats lost: %+v", row)
	}
	if row.BestSellOrder == nil || row.BestSellOrder.OrderID != "ETHEREUM:0x1" {
		t.Fatalf("retried sell update lost: %+v", row)
	}
	if row.BestBidOrder == nil || row.BestBidOrder.OrderID != "ETHEREUM:0xbid" {
		t.Fatalf("pre-existing bid lost: %+v", row)
	}
	if f.repo.saves != 2 {
		t.Fatalf("saves = %d, want 2", f.repo.saves)
	}
	if len(f.sink.updates) != 1 {
		t.Fatalf("only the committed cycle may emit, got %d updates", len(f.sink.updates))
	}
}

func TestItemSellStats(t *testing.T) {
	f := newItemFixture()
	f.ownSvc.stats = chain.SellStats{Sellers: 4, TotalStock: 11}

	if err := f.service.ApplySellStats(context.Background(), f.id); err != nil {
		t.Fatalf("ApplySellStats: %v", err)
	}

	row, _ := f.repo.Get(context.Background(), nil, f.id.String())
	if row == nil || row.Sellers != 4 || row.TotalStock != 11 {
		t.Fatalf("stats not applied: %+v", row)
	}
}

func TestItemRefreshRebuilds(t *testing.T) {
	f := newItemFixture()
	f.orders.setSells(activeSell("0x1", "0xmaker", 100))
	f.ownSvc.stats = chain.SellStats{Sellers: 1, TotalStock: 1}

	if err := f.service.Refresh(context.Background(), f.id); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	row, _ := f.repo.Get(context.Background(), nil, f.id.String())
	if row == nil || row.BestSellOrder == nil || row.BestSellOrder.OrderID != "ETHEREUM:0x1" {
		t.Fatalf("rebuild missed best sell: %+v", row)
	}
	if row.Sellers != 1 || row.TotalStock != 1 {
		t.Fatalf("rebuild missed stats: %+v", row)
	}
}

func TestItemRefreshDropsStaleRow(t *testing.T) {
	f := newItemFixture()
	seeded := domain.EmptyShortItem(f.id)
	seeded.Version = 2
	seeded.Sellers = 1
	f.repo.seed(seeded)
	f.itemSvc.missing = true

	if err := f.service.Refresh(context.Background(), f.id); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if row, _ := f.repo.Get(context.Background(), nil, f.id.String()); row != nil {
		t.Fatalf("stale row survived: %+v", row)
	}
	if len(f.sink.deletes) != 1 {
		t.Fatalf("want one delete event, got %d", len(f.sink.deletes))
	}
}

// --- ownership tests ---

type ownershipFixture struct {
	repo    *fakeOwnershipRepo
	orders  *fakeOrderService
	ownSvc  *fakeOwnershipService
	sink    *recordingSink
	service OwnershipEnrichmentService
	id      domain.OwnershipID
}

func newOwnershipFixture() *ownershipFixture {
	log := logger.NewNop()
	f := &ownershipFixture{
		repo:   newFakeOwnershipRepo(),
		orders: &fakeOrderService{},
		ownSvc: &fakeOwnershipService{},
		sink:   &recordingSink{},
		id:     domain.OwnershipID{Blockchain: domain.BlockchainEthereum, Contract: "0xc", TokenID: "1", Owner: "0xmaker"},
	}
	f.service = NewOwnershipEnrichmentService(
		f.repo,
		router.New(map[domain.Blockchain]chain.OwnershipService{domain.BlockchainEthereum: f.ownSvc}, log),
		router.New(map[domain.Blockchain]chain.OrderService{domain.BlockchainEthereum: f.orders}, log),
		domain.PlatformTokenmesh,
		f.sink,
		log,
	)
	return f
}

func TestOwnershipAdoptsOwnSellOrder(t *testing.T) {
	f := newOwnershipFixture()
	order := activeSell("0x1", "0xmaker", 100)

	if err := f.service.ApplyOrderUpdate(context.Background(), f.id, &order); err != nil {
		t.Fatalf("ApplyOrderUpdate: %v", err)
	}

	row, _ := f.repo.Get(context.Background(), nil, f.id.String())
	if row == nil || row.BestSellOrder == nil || row.BestSellOrder.OrderID != "ETHEREUM:0x1" {
		t.Fatalf("own sell order not adopted: %+v", row)
	}
}

func TestOwnershipIgnoresBidsAndForeignMakers(t *testing.T) {
	f := newOwnershipFixture()

	bid := activeBid("0xb", 50)
	if err := f.service.ApplyOrderUpdate(context.Background(), f.id, &bid); err != nil {
		t.Fatalf("bid: %v", err)
	}
	foreign := activeSell("0x2", "0xsomeoneelse", 80)
	if err := f.service.ApplyOrderUpdate(context.Background(), f.id, &foreign); err != nil {
		t.Fatalf("foreign: %v", err)
	}

	if row, _ := f.repo.Get(context.Background(), nil, f.id.String()); row != nil {
		t.Fatalf("irrelevant updates created a row: %+v", row)
	}
	if len(f.sink.updates) != 0 || len(f.sink.deletes) != 0 {
		t.Fatalf("irrelevant updates emitted events")
	}
}

func TestOwnershipRefreshDropsStaleRow(t *testing.T) {
	f := newOwnershipFixture()
	seeded := domain.EmptyShortOwnership(f.id)
	seeded.Version = 1
	seeded.BestSellOrder = &domain.ShortOrder{OrderID: "ETHEREUM:0x1"}
	f.repo.rows[f.id.String()] = seeded
	f.ownSvc.missing = true

	if err := f.service.Refresh(context.Background(), f.id); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if row, _ := f.repo.Get(context.Background(), nil, f.id.String()); row != nil {
		t.Fatalf("stale ownership row survived")
	}
	if len(f.sink.deletes) != 1 {
		t.Fatalf("want one delete event, got %d", len(f.sink.deletes))
	}
}
