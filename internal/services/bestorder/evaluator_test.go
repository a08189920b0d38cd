package bestorder

import (
	"context"
	"errors"
	"testing"

	"github.com/tokenmesh/marketplace-backend/internal/domain"
	"github.com/tokenmesh/marketplace-backend/internal/pkg/logger"
)

func floatPtr(v float64) *float64 { return &v }

func sellOrder(hash string, platform domain.Platform, priceUSD float64, status domain.OrderStatus) *domain.Order {
	return &domain.Order{
		ID:       domain.OrderID{Blockchain: domain.BlockchainEthereum, Value: hash},
		Platform: platform,
		Status:   status,
		Make: domain.Asset{
			Type:  domain.NFTAssetType{Blockchain: domain.BlockchainEthereum, Contract: "0xc", TokenID: "1"},
			Value: 1,
		},
		Take: domain.Asset{
			Type:  domain.NativeAssetType{Blockchain: domain.BlockchainEthereum},
			Value: priceUSD,
		},
		MakeStock:    1,
		TakePrice:    floatPtr(priceUSD),
		TakePriceUSD: floatPtr(priceUSD),
	}
}

func noProvider(t *testing.T) Provider {
	return func(context.Context, string) (*domain.ShortOrder, error) {
		t.Fatalf("provider must not be called")
		return nil, nil
	}
}

func newSellEvaluator() *Evaluator {
	return NewEvaluator(NewSellComparator(domain.PlatformTokenmesh), logger.NewNop())
}

func TestAdoptWhenNoCurrent(t *testing.T) {
	e := newSellEvaluator()
	update := sellOrder("0x1", domain.PlatformOpenSea, 100, domain.OrderStatusActive)

	got, err := e.OnOrderUpdate(context.Background(), nil, update, noProvider(t))
	if err != nil {
		t.Fatalf("OnOrderUpdate: %v", err)
	}
	if got == nil || got.OrderID != "ETHEREUM:0x1" {
		t.Fatalf("got %+v", got)
	}
}

func TestRefreshSameID(t *testing.T) {
	e := newSellEvaluator()
	current := sellOrder("0x1", domain.PlatformOpenSea, 100, domain.OrderStatusActive).ToShort()
	// Same order, price moved up; still refreshed, not compared.
	update := sellOrder("0x1", domain.PlatformOpenSea, 150, domain.OrderStatusActive)

	got, err := e.OnOrderUpdate(context.Background(), current, update, noProvider(t))
	if err != nil {
		t.Fatalf("OnOrderUpdate: %v", err)
	}
	if got == nil || *got.TakePriceUSD != 150 {
		t.Fatalf("refresh lost: %+v", got)
	}
}

func TestCompareDifferentID(t *testing.T) {
	e := newSellEvaluator()
	current := sellOrder("0x1", domain.PlatformOpenSea, 100, domain.OrderStatusActive).ToShort()

	// Strictly better price wins.
	cheaper := sellOrder("0x2", domain.PlatformOpenSea, 90, domain.OrderStatusActive)
	got, err := e.OnOrderUpdate(context.Background(), current, cheaper, noProvider(t))
	if err != nil || got.OrderID != "ETHEREUM:0x2" {
		t.Fatalf("cheaper order should win: %+v, %v", got, err)
	}

	// Worse price loses, loser is discarded.
	pricier := sellOrder("0x3", domain.PlatformOpenSea, 200, domain.OrderStatusActive)
	got, err = e.OnOrderUpdate(context.Background(), current, pricier, noProvider(t))
	if err != nil || got.OrderID != "ETHEREUM:0x1" {
		t.Fatalf("pricier order should lose: %+v, %v", got, err)
	}
}

func TestPlatformTieBreakIndependentOfArrivalOrder(t *testing.T) {
	e := newSellEvaluator()
	preferred := sellOrder("0xpref", domain.PlatformTokenmesh, 100, domain.OrderStatusActive)
	other := sellOrder("0xother", domain.PlatformOpenSea, 100, domain.OrderStatusActive)

	// Preferred arrives second.
	got, err := e.OnOrderUpdate(context.Background(), other.ToShort(), preferred, noProvider(t))
	if err != nil || got.OrderID != "ETHEREUM:0xpref" {
		t.Fatalf("preferred platform should win tie: %+v, %v", got, err)
	}

	// Preferred arrives first.
	got, err = e.OnOrderUpdate(context.Background(), preferred.ToShort(), other, noProvider(t))
	if err != nil || got.OrderID != "ETHEREUM:0xpref" {
		t.Fatalf("preferred platform should keep tie: %+v, %v", got, err)
	}
}

func TestDeadUpdateNoCurrent(t *testing.T) {
	e := newSellEvaluator()
	update := sellOrder("0x1", domain.PlatformOpenSea, 100, domain.OrderStatusCancelled)

	got, err := e.OnOrderUpdate(context.Background(), nil, update, noProvider(t))
	if err != nil || got != nil {
		t.Fatalf("dead update with no current must be a no-op: %+v, %v", got, err)
	}
}

func TestDeadUpdateSameIDRefetchesExactlyOnce(t *testing.T) {
	e := newSellEvaluator()
	current := sellOrder("0x1", domain.PlatformOpenSea, 100, domain.OrderStatusActive).ToShort()
	update := sellOrder("0x1", domain.PlatformOpenSea, 100, domain.OrderStatusFilled)

	replacement := sellOrder("0x2", domain.PlatformOpenSea, 120, domain.OrderStatusActive).ToShort()
	calls := 0
	provider := func(_ context.Context, currencyID string) (*domain.ShortOrder, error) {
		calls++
		if currencyID != "ETHEREUM:NATIVE" {
			t.Fatalf("provider currency = %q", currencyID)
		}
		return replacement, nil
	}

	got, err := e.OnOrderUpdate(context.Background(), current, update, provider)
	if err != nil {
		t.Fatalf("OnOrderUpdate: %v", err)
	}
	if calls != 1 {
		t.Fatalf("provider called %d times, want exactly 1", calls)
	}
	if got == nil || got.OrderID != "ETHEREUM:0x2" {
		t.Fatalf("replacement not adopted: %+v", got)
	}

	// Provider returning nothing means genuinely no order.
	nilProvider := func(context.Context, string) (*domain.ShortOrder, error) { return nil, nil }
	got, err = e.OnOrderUpdate(context.Background(), current, update, nilProvider)
	if err != nil || got != nil {
		t.Fatalf("want nil best order, got %+v, %v", got, err)
	}
}

func TestDeadUpdateSameIDProviderError(t *testing.T) {
	e := newSellEvaluator()
	current := sellOrder("0x1", domain.PlatformOpenSea, 100, domain.OrderStatusActive).ToShort()
	update := sellOrder("0x1", domain.PlatformOpenSea, 100, domain.OrderStatusCancelled)

	provider := func(context.Context, string) (*domain.ShortOrder, error) {
		return nil, errors.New("chain down")
	}
	if _, err := e.OnOrderUpdate(context.Background(), current, update, provider); err == nil {
		t.Fatalf("provider failure must propagate, not be guessed around")
	}
}

func TestDeadUpdateDifferentIDKeepsCurrent(t *testing.T) {
	e := newSellEvaluator()
	current := sellOrder("0x1", domain.PlatformOpenSea, 100, domain.OrderStatusActive).ToShort()
	update := sellOrder("0x9", domain.PlatformOpenSea, 50, domain.OrderStatusCancelled)

	got, err := e.OnOrderUpdate(context.Background(), current, update, noProvider(t))
	if err != nil || got == nil || got.OrderID != "ETHEREUM:0x1" {
		t.Fatalf("current must be untouched: %+v, %v", got, err)
	}
}

func TestBidComparator(t *testing.T) {
	cmp := NewBidComparator(domain.PlatformTokenmesh)

	low := &domain.ShortOrder{OrderID: "a", Platform: domain.PlatformOpenSea, MakePriceUSD: floatPtr(10)}
	high := &domain.ShortOrder{OrderID: "b", Platform: domain.PlatformOpenSea, MakePriceUSD: floatPtr(20)}

	if got := cmp.Pick(low, high); got.OrderID != "b" {
		t.Fatalf("higher bid should win, got %s", got.OrderID)
	}
	if got := cmp.Pick(high, low); got.OrderID != "b" {
		t.Fatalf("higher bid should stay, got %s", got.OrderID)
	}
}
