package app

import (
	"gorm.io/gorm"

	"github.com/substationlabs/assetview-backend/internal/classify"
	"github.com/substationlabs/assetview-backend/internal/platform/logger"
	"github.com/substationlabs/assetview-backend/internal/services"
)

type Services struct {
	Hierarchy services.HierarchyService
	Asset     services.AssetService
	File      services.FileService
	Import    services.ImportService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients) Services {
	log.Info("Wiring services...")

	schema := classify.LoadSchema(log)

	hierarchyService := services.NewHierarchyService(
		db, log, schema,
		repos.Record,
		clients.Cache,
		clients.Graph,
		cfg.HierarchyCacheTTL,
	)

	fileService := services.NewFileService(
		db, log, schema,
		repos.Record,
		repos.File,
		clients.Bucket,
		hierarchyService,
		cfg.MaxConcurrentUploads,
	)

	assetService := services.NewAssetService(db, log, schema, repos.Record, fileService, hierarchyService)
	importService := services.NewImportService(db, log, schema, repos.Record, repos.ImportRun, hierarchyService)

	return Services{
		Hierarchy: hierarchyService,
		Asset:     assetService,
		File:      fileService,
		Import:    importService,
	}
}
