package domain

import "time"

// ShortOrder is the minimal cached order fact kept per entity and
// currency. It is never the full order payload.
type ShortOrder struct {
	OrderID      string   `json:"order_id"`
	Platform     Platform `json:"platform"`
	MakeStock    float64  `json:"make_stock"`
	CurrencyID   string   `json:"currency_id"`
	MakePrice    *float64 `json:"make_price,omitempty"`
	TakePrice    *float64 `json:"take_price,omitempty"`
	MakePriceUSD *float64 `json:"make_price_usd,omitempty"`
	TakePriceUSD *float64 `json:"take_price_usd,omitempty"`
}

// OriginOrders carries the best orders scoped to one marketplace origin.
type OriginOrders struct {
	Origin        string      `json:"origin"`
	BestSellOrder *ShortOrder `json:"best_sell_order,omitempty"`
	BestBidOrder  *ShortOrder `json:"best_bid_order,omitempty"`
}

func (o OriginOrders) isEmpty() bool {
	return o.BestSellOrder == nil && o.BestBidOrder == nil
}

// PruneOriginOrders drops origins whose best orders are both gone.
func PruneOriginOrders(in []OriginOrders) []OriginOrders {
	var out []OriginOrders
	for _, oo := range in {
		if !oo.isEmpty() {
			out = append(out, oo)
		}
	}
	return out
}

// ShortItem is the denormalized enrichment row for one item. A row only
// exists while it carries enrichment data; see IsEmpty.
type ShortItem struct {
	ID         string     `gorm:"column:id;primaryKey" json:"id"`
	Blockchain Blockchain `gorm:"column:blockchain;not null;index" json:"blockchain"`

	BestSellOrder  *ShortOrder            `gorm:"column:best_sell_order;serializer:json;type:jsonb" json:"best_sell_order,omitempty"`
	BestBidOrder   *ShortOrder            `gorm:"column:best_bid_order;serializer:json;type:jsonb" json:"best_bid_order,omitempty"`
	BestSellOrders map[string]*ShortOrder `gorm:"column:best_sell_orders;serializer:json;type:jsonb" json:"best_sell_orders,omitempty"`
	BestBidOrders  map[string]*ShortOrder `gorm:"column:best_bid_orders;serializer:json;type:jsonb" json:"best_bid_orders,omitempty"`
	OriginOrders   []OriginOrders         `gorm:"column:origin_orders;serializer:json;type:jsonb" json:"origin_orders,omitempty"`
	Auctions       []string               `gorm:"column:auctions;serializer:json;type:jsonb" json:"auctions,omitempty"`

	Sellers    int     `gorm:"column:sellers;not null;default:0" json:"sellers"`
	TotalStock float64 `gorm:"column:total_stock;not null;default:0" json:"total_stock"`

	// Version is the optimistic-lock counter; every committed write
	// increments it and every write is preconditioned on it.
	Version       int64     `gorm:"column:version;not null;default:0" json:"version"`
	LastUpdatedAt time.Time `gorm:"column:last_updated_at;not null" json:"last_updated_at"`
}

func (ShortItem) TableName() string { return "short_item" }

// IsEmpty reports whether the row carries no enrichment data at all, in
// which case it must not be persisted.
func (s *ShortItem) IsEmpty() bool {
	return s == nil ||
		(s.BestSellOrder == nil && s.BestBidOrder == nil &&
			len(s.BestSellOrders) == 0 && len(s.BestBidOrders) == 0 &&
			len(s.OriginOrders) == 0 && len(s.Auctions) == 0 &&
			s.Sellers == 0 && s.TotalStock == 0)
}

// EmptyShortItem is the synthesized starting state for an item that has
// no cache row yet.
func EmptyShortItem(id ItemID) *ShortItem {
	return &ShortItem{ID: id.String(), Blockchain: id.Blockchain}
}

// ShortOwnership is the denormalized enrichment row for one ownership.
// Ownerships only ever carry sell-side enrichment.
type ShortOwnership struct {
	ID         string     `gorm:"column:id;primaryKey" json:"id"`
	Blockchain Blockchain `gorm:"column:blockchain;not null;index" json:"blockchain"`

	BestSellOrder  *ShortOrder            `gorm:"column:best_sell_order;serializer:json;type:jsonb" json:"best_sell_order,omitempty"`
	BestSellOrders map[string]*ShortOrder `gorm:"column:best_sell_orders;serializer:json;type:jsonb" json:"best_sell_orders,omitempty"`
	OriginOrders   []OriginOrders         `gorm:"column:origin_orders;serializer:json;type:jsonb" json:"origin_orders,omitempty"`

	Version       int64     `gorm:"column:version;not null;default:0" json:"version"`
	LastUpdatedAt time.Time `gorm:"column:last_updated_at;not null" json:"last_updated_at"`
}

func (ShortOwnership) TableName() string { return "short_ownership" }

func (s *ShortOwnership) IsEmpty() bool {
	return s == nil ||
		(s.BestSellOrder == nil && len(s.BestSellOrders) == 0 && len(s.OriginOrders) == 0)
}

func EmptyShortOwnership(id OwnershipID) *ShortOwnership {
	return &ShortOwnership{ID: id.String(), Blockchain: id.Blockchain}
}

// ShortCollection is the denormalized enrichment row for collection-wide
// (floor/ceiling) orders.
type ShortCollection struct {
	ID         string     `gorm:"column:id;primaryKey" json:"id"`
	Blockchain Blockchain `gorm:"column:blockchain;not null;index" json:"blockchain"`

	BestSellOrder  *ShortOrder            `gorm:"column:best_sell_order;serializer:json;type:jsonb" json:"best_sell_order,omitempty"`
	BestBidOrder   *ShortOrder            `gorm:"column:best_bid_order;serializer:json;type:jsonb" json:"best_bid_order,omitempty"`
	BestSellOrders map[string]*ShortOrder `gorm:"column:best_sell_orders;serializer:json;type:jsonb" json:"best_sell_orders,omitempty"`
	BestBidOrders  map[string]*ShortOrder `gorm:"column:best_bid_orders;serializer:json;type:jsonb" json:"best_bid_orders,omitempty"`

	Version       int64     `gorm:"column:version;not null;default:0" json:"version"`
	LastUpdatedAt time.Time `gorm:"column:last_updated_at;not null" json:"last_updated_at"`
}

func (ShortCollection) TableName() string { return "short_collection" }

func (s *ShortCollection) IsEmpty() bool {
	return s == nil ||
		(s.BestSellOrder == nil && s.BestBidOrder == nil &&
			len(s.BestSellOrders) == 0 && len(s.BestBidOrders) == 0)
}

func EmptyShortCollection(id CollectionID) *ShortCollection {
	return &ShortCollection{ID: id.String(), Blockchain: id.Blockchain}
}
