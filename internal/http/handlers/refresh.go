package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tokenmesh/marketplace-backend/internal/domain"
	"github.com/tokenmesh/marketplace-backend/internal/services/enrichment"
)

// RefreshHandler exposes the reconciliation sweeps: rebuild one entity's
// cached facts from source of truth, or sweep a whole collection.
type RefreshHandler struct {
	items       enrichment.ItemEnrichmentService
	ownerships  enrichment.OwnershipEnrichmentService
	collections enrichment.CollectionEnrichmentService
}

func NewRefreshHandler(
	items enrichment.ItemEnrichmentService,
	ownerships enrichment.OwnershipEnrichmentService,
	collections enrichment.CollectionEnrichmentService,
) *RefreshHandler {
	return &RefreshHandler{items: items, ownerships: ownerships, collections: collections}
}

func (h *RefreshHandler) RefreshItem(c *gin.Context) {
	id, err := domain.ParseItemID(c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	if err := h.items.Refresh(c.Request.Context(), id); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"refreshed": id.String()})
}

func (h *RefreshHandler) RefreshOwnership(c *gin.Context) {
	id, err := domain.ParseOwnershipID(c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	if err := h.ownerships.Refresh(c.Request.Context(), id); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"refreshed": id.String()})
}

func (h *RefreshHandler) RefreshCollection(c *gin.Context) {
	id, err := domain.ParseCollectionID(c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	if err := h.collections.Refresh(c.Request.Context(), id); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"refreshed": id.String()})
}

// RefreshCollectionItems sweeps every item of the collection through the
// item reconciliation path.
func (h *RefreshHandler) RefreshCollectionItems(c *gin.Context) {
	id, err := domain.ParseCollectionID(c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	refreshed, err := h.items.RefreshByCollection(c.Request.Context(), id)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"collection": id.String(), "refreshed": refreshed})
}
