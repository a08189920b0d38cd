package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/tokenmesh/marketplace-backend/internal/domain"
	apperr "github.com/tokenmesh/marketplace-backend/internal/pkg/errors"
	"github.com/tokenmesh/marketplace-backend/internal/services/aggregation"
)

type ItemHandler struct {
	items aggregation.ItemAggregationService
}

func NewItemHandler(items aggregation.ItemAggregationService) *ItemHandler {
	return &ItemHandler{items: items}
}

// ListItems serves the aggregated multi-chain listing. The continuation
// is the opaque combined cursor from the previous page.
func (h *ItemHandler) ListItems(c *gin.Context) {
	blockchains, err := parseBlockchains(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	size, err := parseSize(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	page, err := h.items.GetAllItems(c.Request.Context(), blockchains, c.Query("continuation"), size)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, toPageResponse(page, toItemResponse))
}

func (h *ItemHandler) GetItem(c *gin.Context) {
	id, err := domain.ParseItemID(c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	item, err := h.items.GetItemByID(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, toItemResponse(*item))
}

func (h *ItemHandler) ListItemsByOwner(c *gin.Context) {
	owner := c.Query("owner")
	if owner == "" {
		RespondError(c, fmt.Errorf("owner is required: %w", apperr.ErrInvalidArgument))
		return
	}
	blockchains, err := parseBlockchains(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	size, err := parseSize(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	page, err := h.items.GetItemsByOwner(c.Request.Context(), owner, blockchains, c.Query("continuation"), size)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, toPageResponse(page, toItemResponse))
}

func (h *ItemHandler) ListItemsByCollection(c *gin.Context) {
	collection, err := domain.ParseCollectionID(c.Query("collection"))
	if err != nil {
		RespondError(c, err)
		return
	}
	size, err := parseSize(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	page, err := h.items.GetItemsByCollection(c.Request.Context(), collection, c.Query("continuation"), size)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, toPageResponse(page, toItemResponse))
}
