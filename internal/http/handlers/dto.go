package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tokenmesh/marketplace-backend/internal/domain"
	apperr "github.com/tokenmesh/marketplace-backend/internal/pkg/errors"
)

// Wire shapes: composite ids are rendered in their canonical string
// form, enrichment facts ride along as the cached short orders.

type itemResponse struct {
	ID            string             `json:"id"`
	Blockchain    domain.Blockchain  `json:"blockchain"`
	Collection    string             `json:"collection,omitempty"`
	Creators      []string           `json:"creators,omitempty"`
	Supply        float64            `json:"supply"`
	LazySupply    float64            `json:"lazy_supply"`
	Deleted       bool               `json:"deleted,omitempty"`
	MintedAt      time.Time          `json:"minted_at"`
	LastUpdatedAt time.Time          `json:"last_updated_at"`
	BestSellOrder *domain.ShortOrder `json:"best_sell_order,omitempty"`
	BestBidOrder  *domain.ShortOrder `json:"best_bid_order,omitempty"`
	Sellers       int                `json:"sellers"`
	TotalStock    float64            `json:"total_stock"`
}

func toItemResponse(i domain.Item) itemResponse {
	return itemResponse{
		ID:            i.ID.String(),
		Blockchain:    i.ID.Blockchain,
		Collection:    i.Collection.String(),
		Creators:      i.Creators,
		Supply:        i.Supply,
		LazySupply:    i.LazySupply,
		Deleted:       i.Deleted,
		MintedAt:      i.MintedAt,
		LastUpdatedAt: i.LastUpdatedAt,
		BestSellOrder: i.BestSellOrder,
		BestBidOrder:  i.BestBidOrder,
		Sellers:       i.Sellers,
		TotalStock:    i.TotalStock,
	}
}

type ownershipResponse struct {
	ID            string             `json:"id"`
	Blockchain    domain.Blockchain  `json:"blockchain"`
	Owner         string             `json:"owner"`
	Value         float64            `json:"value"`
	LazyValue     float64            `json:"lazy_value"`
	CreatedAt     time.Time          `json:"created_at"`
	LastUpdatedAt time.Time          `json:"last_updated_at"`
	BestSellOrder *domain.ShortOrder `json:"best_sell_order,omitempty"`
}

func toOwnershipResponse(o domain.Ownership) ownershipResponse {
	return ownershipResponse{
		ID:            o.ID.String(),
		Blockchain:    o.ID.Blockchain,
		Owner:         o.ID.Owner,
		Value:         o.Value,
		LazyValue:     o.LazyValue,
		CreatedAt:     o.CreatedAt,
		LastUpdatedAt: o.LastUpdatedAt,
		BestSellOrder: o.BestSellOrder,
	}
}

type collectionResponse struct {
	ID            string             `json:"id"`
	Blockchain    domain.Blockchain  `json:"blockchain"`
	Name          string             `json:"name,omitempty"`
	Symbol        string             `json:"symbol,omitempty"`
	Owner         string             `json:"owner,omitempty"`
	Type          string             `json:"type,omitempty"`
	LastUpdatedAt time.Time          `json:"last_updated_at"`
	BestSellOrder *domain.ShortOrder `json:"best_sell_order,omitempty"`
	BestBidOrder  *domain.ShortOrder `json:"best_bid_order,omitempty"`
}

func toCollectionResponse(c domain.Collection) collectionResponse {
	return collectionResponse{
		ID:            c.ID.String(),
		Blockchain:    c.ID.Blockchain,
		Name:          c.Name,
		Symbol:        c.Symbol,
		Owner:         c.Owner,
		Type:          c.Type,
		LastUpdatedAt: c.LastUpdatedAt,
		BestSellOrder: c.BestSellOrder,
		BestBidOrder:  c.BestBidOrder,
	}
}

type pageResponse[T any] struct {
	Entities     []T     `json:"entities"`
	Continuation *string `json:"continuation,omitempty"`
	Total        int64   `json:"total"`
}

func toPageResponse[E, T any](page domain.Page[E], convert func(E) T) pageResponse[T] {
	entities := make([]T, 0, len(page.Entities))
	for _, e := range page.Entities {
		entities = append(entities, convert(e))
	}
	return pageResponse[T]{Entities: entities, Continuation: page.Continuation, Total: page.Total}
}

// --- query parsing ---

func parseBlockchains(c *gin.Context) ([]domain.Blockchain, error) {
	raw := strings.TrimSpace(c.Query("blockchains"))
	if raw == "" {
		return nil, nil
	}
	var out []domain.Blockchain
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		blockchain, err := domain.ParseBlockchain(part)
		if err != nil {
			return nil, err
		}
		out = append(out, blockchain)
	}
	return out, nil
}

func parseSize(c *gin.Context) (int, error) {
	raw := strings.TrimSpace(c.Query("size"))
	if raw == "" {
		return 0, nil
	}
	size, err := strconv.Atoi(raw)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("size %q: %w", raw, apperr.ErrInvalidArgument)
	}
	return size, nil
}
