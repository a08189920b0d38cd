package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/tokenmesh/marketplace-backend/internal/http/handlers"
)

type RouterConfig struct {
	ServiceName string

	HealthHandler     *httpH.HealthHandler
	ItemHandler       *httpH.ItemHandler
	OwnershipHandler  *httpH.OwnershipHandler
	CollectionHandler *httpH.CollectionHandler
	OrderEventHandler *httpH.OrderEventHandler
	RefreshHandler    *httpH.RefreshHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:80", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	v1 := r.Group("/v1")
	{
		// Items
		if cfg.ItemHandler != nil {
			v1.GET("/items", cfg.ItemHandler.ListItems)
			v1.GET("/items/byOwner", cfg.ItemHandler.ListItemsByOwner)
			v1.GET("/items/byCollection", cfg.ItemHandler.ListItemsByCollection)
			v1.GET("/items/:id", cfg.ItemHandler.GetItem)
		}

		// Ownerships
		if cfg.OwnershipHandler != nil {
			v1.GET("/ownerships/byItem", cfg.OwnershipHandler.ListOwnershipsByItem)
			v1.GET("/ownerships/:id", cfg.OwnershipHandler.GetOwnership)
		}

		// Collections
		if cfg.CollectionHandler != nil {
			v1.GET("/collections/byOwner", cfg.CollectionHandler.ListCollectionsByOwner)
			v1.GET("/collections/:id", cfg.CollectionHandler.GetCollection)
		}

		// Indexer callbacks
		if cfg.OrderEventHandler != nil {
			v1.POST("/events/orders", cfg.OrderEventHandler.IngestOrderEvent)
			v1.POST("/events/ownerships", cfg.OrderEventHandler.IngestOwnershipChange)
		}

		// Reconciliation
		if cfg.RefreshHandler != nil {
			v1.POST("/refresh/items/:id", cfg.RefreshHandler.RefreshItem)
			v1.POST("/refresh/ownerships/:id", cfg.RefreshHandler.RefreshOwnership)
			v1.POST("/refresh/collections/:id", cfg.RefreshHandler.RefreshCollection)
			v1.POST("/refresh/collections/:id/items", cfg.RefreshHandler.RefreshCollectionItems)
		}
	}

	return r
}
