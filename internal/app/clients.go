package app

import (
	"github.com/tokenmesh/marketplace-backend/internal/clients/chain"
	"github.com/tokenmesh/marketplace-backend/internal/domain"
	"github.com/tokenmesh/marketplace-backend/internal/pkg/logger"
	"github.com/tokenmesh/marketplace-backend/internal/router"
)

// Clients holds one router per chain-service contract. Every configured
// chain gets a single HTTP client that satisfies all four contracts.
type Clients struct {
	Items       *router.Router[chain.ItemService]
	Ownerships  *router.Router[chain.OwnershipService]
	Orders      *router.Router[chain.OrderService]
	Collections *router.Router[chain.CollectionService]
}

func wireClients(cfg Config, log *logger.Logger) Clients {
	log.Info("Wiring chain clients...", "chains", len(cfg.Chains))

	items := map[domain.Blockchain]chain.ItemService{}
	ownerships := map[domain.Blockchain]chain.OwnershipService{}
	orders := map[domain.Blockchain]chain.OrderService{}
	collections := map[domain.Blockchain]chain.CollectionService{}

	for _, c := range cfg.Chains {
		client := chain.NewClient(c.Blockchain, c.BaseURL, log)
		items[c.Blockchain] = client
		ownerships[c.Blockchain] = client
		orders[c.Blockchain] = client
		collections[c.Blockchain] = client
	}

	return Clients{
		Items:       router.New(items, log),
		Ownerships:  router.New(ownerships, log),
		Orders:      router.New(orders, log),
		Collections: router.New(collections, log),
	}
}
