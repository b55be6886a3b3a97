package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/substationlabs/assetview-backend/internal/http/handlers"
	httpMW "github.com/substationlabs/assetview-backend/internal/http/middleware"
	"github.com/substationlabs/assetview-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	HealthHandler    *httpH.HealthHandler
	AssetHandler     *httpH.AssetHandler
	HierarchyHandler *httpH.HierarchyHandler
	FileHandler      *httpH.FileHandler
	ImportHandler    *httpH.ImportHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("assetview"))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Assets
		if cfg.AssetHandler != nil {
			api.GET("/assets", cfg.AssetHandler.ListAssets)
			api.GET("/assets/:key", cfg.AssetHandler.GetAsset)
			api.PATCH("/assets/:key/classification", cfg.AssetHandler.UpdateAssetClassification)
			api.DELETE("/assets/:key", cfg.AssetHandler.DeleteAsset)
			api.GET("/assets/:key/files", cfg.AssetHandler.ListAssetFiles)
		}

		// Hierarchy
		if cfg.HierarchyHandler != nil {
			api.GET("/hierarchy", cfg.HierarchyHandler.GetHierarchy)
			api.GET("/hierarchy/stats", cfg.HierarchyHandler.GetHierarchyStats)
			api.GET("/hierarchy/orphans", cfg.HierarchyHandler.ListOrphans)
		}

		// Files
		if cfg.FileHandler != nil {
			api.POST("/files/resolve", cfg.FileHandler.ResolveFilenames)
			api.POST("/files", cfg.FileHandler.UploadFiles)
			api.PATCH("/files/:id/rename", cfg.FileHandler.RenameFile)
			api.DELETE("/files/:id", cfg.FileHandler.DeleteFile)
		}

		// Imports
		if cfg.ImportHandler != nil {
			api.POST("/imports", cfg.ImportHandler.ImportWorkbook)
			api.GET("/imports", cfg.ImportHandler.ListImportRuns)
		}
	}

	return r
}
