package app

import (
	"gorm.io/gorm"

	"github.com/substationlabs/assetview-backend/internal/data/repos/assets"
	"github.com/substationlabs/assetview-backend/internal/platform/logger"
)

type Repos struct {
	Record    assets.RecordRepo
	File      assets.FileRepo
	ImportRun assets.ImportRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Record:    assets.NewRecordRepo(db, log),
		File:      assets.NewFileRepo(db, log),
		ImportRun: assets.NewImportRunRepo(db, log),
	}
}
