package domain

import "time"

// Item is the canonical item shape served by a chain's item indexer,
// enriched by the aggregator with cached best-order facts before it is
// returned to callers.
type Item struct {
	ID         ItemID
	Collection CollectionID
	Creators   []string
	Supply     float64
	LazySupply float64
	Deleted    bool
	MintedAt   time.Time
	// LastUpdatedAt orders items in aggregated listings (newest first).
	LastUpdatedAt time.Time

	// Enrichment fields, filled from the short-item cache.
	BestSellOrder *ShortOrder
	BestBidOrder  *ShortOrder
	Sellers       int
	TotalStock    float64
}

// Ownership is one owner's stake in an item.
type Ownership struct {
	ID            OwnershipID
	Value         float64
	LazyValue     float64
	CreatedAt     time.Time
	LastUpdatedAt time.Time

	BestSellOrder *ShortOrder
}

// Collection groups items under one contract.
type Collection struct {
	ID            CollectionID
	Name          string
	Symbol        string
	Owner         string
	Type          string
	LastUpdatedAt time.Time

	BestSellOrder *ShortOrder
	BestBidOrder  *ShortOrder
}
