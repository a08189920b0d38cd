package handlers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tokenmesh/marketplace-backend/internal/domain"
	apperr "github.com/tokenmesh/marketplace-backend/internal/pkg/errors"
	"github.com/tokenmesh/marketplace-backend/internal/pkg/logger"
	"github.com/tokenmesh/marketplace-backend/internal/services/enrichment"
)

// OrderEventHandler is the webhook the chain indexers call whenever an
// order changes. One observed order fans out to the item it trades, the
// item's collection and, for sell orders, the maker's ownership.
type OrderEventHandler struct {
	items       enrichment.ItemEnrichmentService
	ownerships  enrichment.OwnershipEnrichmentService
	collections enrichment.CollectionEnrichmentService
	log         *logger.Logger
}

func NewOrderEventHandler(
	items enrichment.ItemEnrichmentService,
	ownerships enrichment.OwnershipEnrichmentService,
	collections enrichment.CollectionEnrichmentService,
	baseLog *logger.Logger,
) *OrderEventHandler {
	return &OrderEventHandler{
		items:       items,
		ownerships:  ownerships,
		collections: collections,
		log:         baseLog.With("handler", "OrderEventHandler"),
	}
}

type orderAssetRequest struct {
	Kind     string  `json:"kind" binding:"required"`
	Contract string  `json:"contract,omitempty"`
	TokenID  string  `json:"token_id,omitempty"`
	Value    float64 `json:"value"`
}

type orderEventRequest struct {
	Blockchain    string            `json:"blockchain" binding:"required"`
	Hash          string            `json:"hash" binding:"required"`
	Platform      string            `json:"platform" binding:"required"`
	Status        string            `json:"status" binding:"required"`
	Maker         string            `json:"maker"`
	Make          orderAssetRequest `json:"make" binding:"required"`
	Take          orderAssetRequest `json:"take" binding:"required"`
	MakeStock     float64           `json:"make_stock"`
	MakePrice     *float64          `json:"make_price,omitempty"`
	TakePrice     *float64          `json:"take_price,omitempty"`
	MakePriceUSD  *float64          `json:"make_price_usd,omitempty"`
	TakePriceUSD  *float64          `json:"take_price_usd,omitempty"`
	Origins       []string          `json:"origins,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	LastUpdatedAt time.Time         `json:"last_updated_at"`
}

func (r orderAssetRequest) toDomain(blockchain domain.Blockchain) (domain.Asset, error) {
	var assetType domain.AssetType
	switch r.Kind {
	case "NATIVE":
		assetType = domain.NativeAssetType{Blockchain: blockchain}
	case "TOKEN":
		assetType = domain.TokenAssetType{Blockchain: blockchain, Contract: r.Contract}
	case "NFT":
		assetType = domain.NFTAssetType{Blockchain: blockchain, Contract: r.Contract, TokenID: r.TokenID}
	default:
		return domain.Asset{}, fmt.Errorf("unknown asset kind %q: %w", r.Kind, apperr.ErrInvalidArgument)
	}
	return domain.Asset{Type: assetType, Value: r.Value}, nil
}

func (r orderEventRequest) toDomain() (*domain.Order, error) {
	blockchain, err := domain.ParseBlockchain(r.Blockchain)
	if err != nil {
		return nil, err
	}
	makeAsset, err := r.Make.toDomain(blockchain)
	if err != nil {
		return nil, fmt.Errorf("order %s make: %w", r.Hash, err)
	}
	takeAsset, err := r.Take.toDomain(blockchain)
	if err != nil {
		return nil, fmt.Errorf("order %s take: %w", r.Hash, err)
	}
	return &domain.Order{
		ID:            domain.OrderID{Blockchain: blockchain, Value: r.Hash},
		Platform:      domain.Platform(r.Platform),
		Status:        domain.OrderStatus(r.Status),
		Maker:         r.Maker,
		Make:          makeAsset,
		Take:          takeAsset,
		MakeStock:     r.MakeStock,
		MakePrice:     r.MakePrice,
		TakePrice:     r.TakePrice,
		MakePriceUSD:  r.MakePriceUSD,
		TakePriceUSD:  r.TakePriceUSD,
		Origins:       r.Origins,
		CreatedAt:     r.CreatedAt,
		LastUpdatedAt: r.LastUpdatedAt,
	}, nil
}

// nftLeg returns the NFT side of the order, whichever leg it is on.
func nftLeg(order *domain.Order) (domain.NFTAssetType, bool) {
	if nft, ok := order.Make.Type.(domain.NFTAssetType); ok {
		return nft, true
	}
	if nft, ok := order.Take.Type.(domain.NFTAssetType); ok {
		return nft, true
	}
	return domain.NFTAssetType{}, false
}

func (h *OrderEventHandler) IngestOrderEvent(c *gin.Context) {
	var req orderEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, fmt.Errorf("%s: %w", err.Error(), apperr.ErrInvalidArgument))
		return
	}
	order, err := req.toDomain()
	if err != nil {
		RespondError(c, err)
		return
	}
	nft, ok := nftLeg(order)
	if !ok {
		RespondError(c, fmt.Errorf("order %s has no NFT leg: %w", order.ID, apperr.ErrInvalidArgument))
		return
	}

	itemID := domain.ItemID{Blockchain: nft.Blockchain, Contract: nft.Contract, TokenID: nft.TokenID}
	collectionID := domain.CollectionID{Blockchain: nft.Blockchain, Address: nft.Contract}
	ctx := c.Request.Context()

	if err := h.items.ApplyOrderUpdate(ctx, itemID, order); err != nil {
		RespondError(c, err)
		return
	}
	if err := h.collections.ApplyOrderUpdate(ctx, collectionID, order); err != nil {
		RespondError(c, err)
		return
	}
	if order.IsSell() && order.Maker != "" {
		ownershipID := domain.OwnershipID{
			Blockchain: nft.Blockchain,
			Contract:   nft.Contract,
			TokenID:    nft.TokenID,
			Owner:      order.Maker,
		}
		if err := h.ownerships.ApplyOrderUpdate(ctx, ownershipID, order); err != nil {
			RespondError(c, err)
			return
		}
	}

	RespondOK(c, gin.H{"accepted": order.ID.String()})
}

// IngestOwnershipChange recomputes the item-level sell stats after an
// ownership moved (transfer, burn, listing change).
func (h *OrderEventHandler) IngestOwnershipChange(c *gin.Context) {
	itemID, err := domain.ParseItemID(c.Query("itemId"))
	if err != nil {
		RespondError(c, err)
		return
	}
	if err := h.items.ApplySellStats(c.Request.Context(), itemID); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"accepted": itemID.String()})
}
