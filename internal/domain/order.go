package domain

import "time"

// Platform names the marketplace an order originates from.
type Platform string

const (
	PlatformTokenmesh Platform = "TOKENMESH"
	PlatformOpenSea   Platform = "OPENSEA"
	PlatformLooksRare Platform = "LOOKSRARE"
	PlatformX2Y2      Platform = "X2Y2"
	PlatformObjkt     Platform = "OBJKT"
)

type OrderStatus string

const (
	OrderStatusActive    OrderStatus = "ACTIVE"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusInactive  OrderStatus = "INACTIVE"
)

// Order is a fully observed order as delivered by a chain's order
// indexer. Sell orders carry the NFT on the make side and the currency
// on the take side; bids are the reverse.
type Order struct {
	ID            OrderID
	Platform      Platform
	Status        OrderStatus
	Maker         string
	Make          Asset
	Take          Asset
	// MakeStock is how much of the make side is still available.
	MakeStock float64
	// MakePrice/TakePrice are unit prices in the payment currency;
	// exactly one of them is set depending on order direction.
	MakePrice *float64
	TakePrice *float64
	// USD-normalized unit prices, when a rate was available at indexing
	// time.
	MakePriceUSD *float64
	TakePriceUSD *float64
	// Origins carries the marketplace origins the order was placed
	// through, used for origin-scoped best orders.
	Origins       []string
	CreatedAt     time.Time
	LastUpdatedAt time.Time
}

// IsAlive reports whether the order can still be matched. Everything
// that is not ACTIVE is terminal for best-order purposes.
func (o *Order) IsAlive() bool {
	return o != nil && o.Status == OrderStatusActive && o.MakeStock > 0
}

// IsSell reports whether the order sells an NFT for a currency.
func (o *Order) IsSell() bool {
	if o == nil {
		return false
	}
	_, nft := o.Make.Type.(NFTAssetType)
	return nft
}

// SellCurrencyID returns the payment currency of a sell order.
func (o *Order) SellCurrencyID() string {
	if o == nil || o.Take.Type == nil {
		return ""
	}
	return o.Take.Type.CurrencyID()
}

// BidCurrencyID returns the payment currency of a bid.
func (o *Order) BidCurrencyID() string {
	if o == nil || o.Make.Type == nil {
		return ""
	}
	return o.Make.Type.CurrencyID()
}

// CurrencyID returns the payment-side currency regardless of direction.
func (o *Order) CurrencyID() string {
	if o.IsSell() {
		return o.SellCurrencyID()
	}
	return o.BidCurrencyID()
}

// ToShort projects the order down to the cached fact the enrichment
// layer stores. Only fields needed for best-order comparison survive.
func (o *Order) ToShort() *ShortOrder {
	if o == nil {
		return nil
	}
	return &ShortOrder{
		OrderID:      o.ID.String(),
		Platform:     o.Platform,
		MakeStock:    o.MakeStock,
		CurrencyID:   o.CurrencyID(),
		MakePrice:    o.MakePrice,
		TakePrice:    o.TakePrice,
		MakePriceUSD: o.MakePriceUSD,
		TakePriceUSD: o.TakePriceUSD,
	}
}
