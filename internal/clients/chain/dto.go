package chain

import (
	"fmt"
	"time"

	"github.com/tokenmesh/marketplace-backend/internal/domain"
)

// Wire DTOs for the per-chain indexer API. Each converter maps the wire
// shape onto the closed domain unions; an unknown discriminator is a
// protocol error, never silently dropped.

type sliceDto[T any] struct {
	Entities     []T     `json:"entities"`
	Continuation *string `json:"continuation"`
}

type assetDto struct {
	Kind     string  `json:"kind"`
	Contract string  `json:"contract,omitempty"`
	TokenID  string  `json:"token_id,omitempty"`
	Value    float64 `json:"value"`
}

func (d assetDto) toDomain(blockchain domain.Blockchain) (domain.Asset, error) {
	var assetType domain.AssetType
	switch d.Kind {
	case "NATIVE":
		assetType = domain.NativeAssetType{Blockchain: blockchain}
	case "TOKEN":
		assetType = domain.TokenAssetType{Blockchain: blockchain, Contract: d.Contract}
	case "NFT":
		assetType = domain.NFTAssetType{Blockchain: blockchain, Contract: d.Contract, TokenID: d.TokenID}
	default:
		return domain.Asset{}, fmt.Errorf("unknown asset kind %q", d.Kind)
	}
	return domain.Asset{Type: assetType, Value: d.Value}, nil
}

type orderDto struct {
	Hash          string    `json:"hash"`
	Platform      string    `json:"platform"`
	Status        string    `json:"status"`
	Maker         string    `json:"maker"`
	Make          assetDto  `json:"make"`
	Take          assetDto  `json:"take"`
	MakeStock     float64   `json:"make_stock"`
	MakePrice     *float64  `json:"make_price,omitempty"`
	TakePrice     *float64  `json:"take_price,omitempty"`
	MakePriceUSD  *float64  `json:"make_price_usd,omitempty"`
	TakePriceUSD  *float64  `json:"take_price_usd,omitempty"`
	Origins       []string  `json:"origins,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

func (d orderDto) toDomain(blockchain domain.Blockchain) (*domain.Order, error) {
	makeAsset, err := d.Make.toDomain(blockchain)
	if err != nil {
		return nil, fmt.Errorf("order %s make: %w", d.Hash, err)
	}
	takeAsset, err := d.Take.toDomain(blockchain)
	if err != nil {
		return nil, fmt.Errorf("order %s take: %w", d.Hash, err)
	}
	return &domain.Order{
		ID:            domain.OrderID{Blockchain: blockchain, Value: d.Hash},
		Platform:      domain.Platform(d.Platform),
		Status:        domain.OrderStatus(d.Status),
		Maker:         d.Maker,
		Make:          makeAsset,
		Take:          takeAsset,
		MakeStock:     d.MakeStock,
		MakePrice:     d.MakePrice,
		TakePrice:     d.TakePrice,
		MakePriceUSD:  d.MakePriceUSD,
		TakePriceUSD:  d.TakePriceUSD,
		Origins:       d.Origins,
		CreatedAt:     d.CreatedAt,
		LastUpdatedAt: d.LastUpdatedAt,
	}, nil
}

type itemDto struct {
	Contract      string    `json:"contract"`
	TokenID       string    `json:"token_id"`
	Collection    string    `json:"collection"`
	Creators      []string  `json:"creators,omitempty"`
	Supply        float64   `json:"supply"`
	LazySupply    float64   `json:"lazy_supply"`
	Deleted       bool      `json:"deleted"`
	MintedAt      time.Time `json:"minted_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

func (d itemDto) toDomain(blockchain domain.Blockchain) domain.Item {
	return domain.Item{
		ID:            domain.ItemID{Blockchain: blockchain, Contract: d.Contract, TokenID: d.TokenID},
		Collection:    domain.CollectionID{Blockchain: blockchain, Address: d.Collection},
		Creators:      d.Creators,
		Supply:        d.Supply,
		LazySupply:    d.LazySupply,
		Deleted:       d.Deleted,
		MintedAt:      d.MintedAt,
		LastUpdatedAt: d.LastUpdatedAt,
	}
}

type ownershipDto struct {
	Contract      string    `json:"contract"`
	TokenID       string    `json:"token_id"`
	Owner         string    `json:"owner"`
	Value         float64   `json:"value"`
	LazyValue     float64   `json:"lazy_value"`
	CreatedAt     time.Time `json:"created_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

func (d ownershipDto) toDomain(blockchain domain.Blockchain) domain.Ownership {
	return domain.Ownership{
		ID: domain.OwnershipID{
			Blockchain: blockchain,
			Contract:   d.Contract,
			TokenID:    d.TokenID,
			Owner:      d.Owner,
		},
		Value:         d.Value,
		LazyValue:     d.LazyValue,
		CreatedAt:     d.CreatedAt,
		LastUpdatedAt: d.LastUpdatedAt,
	}
}

type collectionDto struct {
	Address       string    `json:"address"`
	Name          string    `json:"name"`
	Symbol        string    `json:"symbol"`
	Owner         string    `json:"owner"`
	Type          string    `json:"type"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

func (d collectionDto) toDomain(blockchain domain.Blockchain) domain.Collection {
	return domain.Collection{
		ID:            domain.CollectionID{Blockchain: blockchain, Address: d.Address},
		Name:          d.Name,
		Symbol:        d.Symbol,
		Owner:         d.Owner,
		Type:          d.Type,
		LastUpdatedAt: d.LastUpdatedAt,
	}
}
