// Package chain defines the narrow contracts the aggregator needs from a
// blockchain's indexer services, plus the HTTP client that implements
// them against one chain's private indexer API. Every call is
// chain-local; errors are scoped to the chain that produced them.
package chain

import (
	"context"

	"github.com/tokenmesh/marketplace-backend/internal/domain"
)

// ItemService serves one chain's items.
type ItemService interface {
	GetItemByID(ctx context.Context, id domain.ItemID) (*domain.Item, error)
	GetAllItems(ctx context.Context, cont *string, size int) (domain.Slice[domain.Item], error)
	GetItemsByOwner(ctx context.Context, owner string, cont *string, size int) (domain.Slice[domain.Item], error)
	GetItemsByCollection(ctx context.Context, collection domain.CollectionID, cont *string, size int) (domain.Slice[domain.Item], error)
}

// SellStats aggregates the ownership-derived sell-side stats of an item.
type SellStats struct {
	Sellers    int     `json:"sellers"`
	TotalStock float64 `json:"total_stock"`
}

// OwnershipService serves one chain's ownerships.
type OwnershipService interface {
	GetOwnershipByID(ctx context.Context, id domain.OwnershipID) (*domain.Ownership, error)
	GetOwnershipsByItem(ctx context.Context, item domain.ItemID, cont *string, size int) (domain.Slice[domain.Ownership], error)
	GetItemSellStats(ctx context.Context, item domain.ItemID) (SellStats, error)
}

// OrderService is the order-query interface; it is the source of truth
// the enrichment layer reconciles cached best-order facts against.
type OrderService interface {
	GetOrderByID(ctx context.Context, id domain.OrderID) (*domain.Order, error)
	// maker narrows sell orders to one seller (ownership enrichment);
	// empty means any maker.
	GetSellOrdersByItem(ctx context.Context, item domain.ItemID, maker, currencyID, origin string, cont *string, size int) (domain.Slice[domain.Order], error)
	GetBidOrdersByItem(ctx context.Context, item domain.ItemID, currencyID, origin string, cont *string, size int) (domain.Slice[domain.Order], error)
	GetSellOrdersByCollection(ctx context.Context, collection domain.CollectionID, currencyID string, cont *string, size int) (domain.Slice[domain.Order], error)
	GetBidOrdersByCollection(ctx context.Context, collection domain.CollectionID, currencyID string, cont *string, size int) (domain.Slice[domain.Order], error)
	// GetSellCurrencies / GetBidCurrencies list the currencies an item
	// currently has open orders in, used when rebuilding the per-currency
	// best-order maps from scratch.
	GetSellCurrencies(ctx context.Context, item domain.ItemID) ([]string, error)
	GetBidCurrencies(ctx context.Context, item domain.ItemID) ([]string, error)
}

// CollectionService serves one chain's collections.
type CollectionService interface {
	GetCollectionByID(ctx context.Context, id domain.CollectionID) (*domain.Collection, error)
	GetCollectionsByOwner(ctx context.Context, owner string, cont *string, size int) (domain.Slice[domain.Collection], error)
}
