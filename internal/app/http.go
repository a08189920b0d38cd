package app

import (
	"github.com/gin-gonic/gin"

	apphttp "github.com/tokenmesh/marketplace-backend/internal/http"
	httpH "github.com/tokenmesh/marketplace-backend/internal/http/handlers"
	"github.com/tokenmesh/marketplace-backend/internal/pkg/logger"
)

type Handlers struct {
	Health     *httpH.HealthHandler
	Item       *httpH.ItemHandler
	Ownership  *httpH.OwnershipHandler
	Collection *httpH.CollectionHandler
	OrderEvent *httpH.OrderEventHandler
	Refresh    *httpH.RefreshHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(),
		Item:       httpH.NewItemHandler(services.ItemAggregation),
		Ownership:  httpH.NewOwnershipHandler(services.OwnershipAggregation),
		Collection: httpH.NewCollectionHandler(services.CollectionAggregation),
		OrderEvent: httpH.NewOrderEventHandler(
			services.ItemEnrichment, services.OwnershipEnrichment, services.CollectionEnrichment, log),
		Refresh: httpH.NewRefreshHandler(
			services.ItemEnrichment, services.OwnershipEnrichment, services.CollectionEnrichment),
	}
}

func wireRouter(cfg Config, handlers Handlers) *gin.Engine {
	return apphttp.NewRouter(apphttp.RouterConfig{
		ServiceName:       cfg.ServiceName,
		HealthHandler:     handlers.Health,
		ItemHandler:       handlers.Item,
		OwnershipHandler:  handlers.Ownership,
		CollectionHandler: handlers.Collection,
		OrderEventHandler: handlers.OrderEvent,
		RefreshHandler:    handlers.Refresh,
	})
}
