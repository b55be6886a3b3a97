package app

import (
	"github.com/gin-gonic/gin"

	"github.com/substationlabs/assetview-backend/internal/http"
	httpH "github.com/substationlabs/assetview-backend/internal/http/handlers"
	"github.com/substationlabs/assetview-backend/internal/platform/logger"
)

type Handlers struct {
	Health    *httpH.HealthHandler
	Asset     *httpH.AssetHandler
	Hierarchy *httpH.HierarchyHandler
	File      *httpH.FileHandler
	Import    *httpH.ImportHandler
}

func wireHandlers(log *logger.Logger, cfg Config, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:    httpH.NewHealthHandler(),
		Asset:     httpH.NewAssetHandler(log, services.Asset),
		Hierarchy: httpH.NewHierarchyHandler(log, services.Hierarchy),
		File:      httpH.NewFileHandler(log, services.File),
		Import:    httpH.NewImportHandler(log, services.Import, cfg.ImportHistoryLimit),
	}
}

func wireRouter(log *logger.Logger, handlers Handlers) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:              log,
		HealthHandler:    handlers.Health,
		AssetHandler:     handlers.Asset,
		HierarchyHandler: handlers.Hierarchy,
		FileHandler:      handlers.File,
		ImportHandler:    handlers.Import,
	})
}
