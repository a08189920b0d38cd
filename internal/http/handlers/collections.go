package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/tokenmesh/marketplace-backend/internal/domain"
	apperr "github.com/tokenmesh/marketplace-backend/internal/pkg/errors"
	"github.com/tokenmesh/marketplace-backend/internal/services/aggregation"
)

type CollectionHandler struct {
	collections aggregation.CollectionAggregationService
}

func NewCollectionHandler(collections aggregation.CollectionAggregationService) *CollectionHandler {
	return &CollectionHandler{collections: collections}
}

func (h *CollectionHandler) GetCollection(c *gin.Context) {
	id, err := domain.ParseCollectionID(c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	collection, err := h.collections.GetCollectionByID(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, toCollectionResponse(*collection))
}

func (h *CollectionHandler) ListCollectionsByOwner(c *gin.Context) {
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
	page, err := h.collections.GetCollectionsByOwner(c.Request.Context(), owner, blockchains, c.Query("continuation"), size)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, toPageResponse(page, toCollectionResponse))
}
