package app

import (
	redisclient "github.com/tokenmesh/marketplace-backend/internal/clients/redis"
	"github.com/tokenmesh/marketplace-backend/internal/pkg/logger"
	"github.com/tokenmesh/marketplace-backend/internal/services/aggregation"
	"github.com/tokenmesh/marketplace-backend/internal/services/enrichment"
)

type Services struct {
	ItemAggregation       aggregation.ItemAggregationService
	OwnershipAggregation  aggregation.OwnershipAggregationService
	CollectionAggregation aggregation.CollectionAggregationService

	ItemEnrichment       enrichment.ItemEnrichmentService
	OwnershipEnrichment  enrichment.OwnershipEnrichmentService
	CollectionEnrichment enrichment.CollectionEnrichmentService

	EventBus redisclient.EntityEventBus
}

func wireServices(cfg Config, clients Clients, reposet Repos, log *logger.Logger) Services {
	log.Info("Wiring services...")

	var sink enrichment.EventSink = enrichment.NopSink{}
	bus, err := redisclient.NewEntityEventBus(log)
	if err != nil {
		log.Warn("entity event bus init failed, events disabled", "error", err)
	} else {
		sink = bus
	}

	return Services{
		ItemAggregation:       aggregation.NewItemAggregationService(clients.Items, reposet.ShortItems, log),
		OwnershipAggregation:  aggregation.NewOwnershipAggregationService(clients.Ownerships, reposet.ShortOwnerships, log),
		CollectionAggregation: aggregation.NewCollectionAggregationService(clients.Collections, reposet.ShortCollections, log),

		ItemEnrichment: enrichment.NewItemEnrichmentService(
			reposet.ShortItems, clients.Items, clients.Orders, clients.Ownerships,
			cfg.PreferredPlatform, sink, log),
		OwnershipEnrichment: enrichment.NewOwnershipEnrichmentService(
			reposet.ShortOwnerships, clients.Ownerships, clients.Orders,
			cfg.PreferredPlatform, sink, log),
		CollectionEnrichment: enrichment.NewCollectionEnrichmentService(
			reposet.ShortCollections, clients.Collections, clients.Orders,
			cfg.PreferredPlatform, sink, log),

		EventBus: bus,
	}
}
