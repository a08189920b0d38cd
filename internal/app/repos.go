package app

import (
	"gorm.io/gorm"

	"github.com/tokenmesh/marketplace-backend/internal/data/repos"
	"github.com/tokenmesh/marketplace-backend/internal/pkg/logger"
)

type Repos struct {
	ShortItems       repos.ShortItemRepo
	ShortOwnerships  repos.ShortOwnershipRepo
	ShortCollections repos.ShortCollectionRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		ShortItems:       repos.NewShortItemRepo(db, log),
		ShortOwnerships:  repos.NewShortOwnershipRepo(db, log),
		ShortCollections: repos.NewShortCollectionRepo(db, log),
	}
}
