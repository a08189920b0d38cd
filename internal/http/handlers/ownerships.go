package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tokenmesh/marketplace-backend/internal/domain"
	"github.com/tokenmesh/marketplace-backend/internal/services/aggregation"
)

type OwnershipHandler struct {
	ownerships aggregation.OwnershipAggregationService
}

func NewOwnershipHandler(ownerships aggregation.OwnershipAggregationService) *OwnershipHandler {
	return &OwnershipHandler{ownerships: ownerships}
}

func (h *OwnershipHandler) GetOwnership(c *gin.Context) {
	id, err := domain.ParseOwnershipID(c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	ownership, err := h.ownerships.GetOwnershipByID(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, toOwnershipResponse(*ownership))
}

func (h *OwnershipHandler) ListOwnershipsByItem(c *gin.Context) {
	item, err := domain.ParseItemID(c.Query("itemId"))
	if err != nil {
		RespondError(c, err)
		return
	}
	size, err := parseSize(c)
	if err != nil {
		RespondError(c, err)
		return
	}
	page, err := h.ownerships.GetOwnershipsByItem(c.Request.Context(), item, c.Query("continuation"), size)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, toPageResponse(page, toOwnershipResponse))
}
