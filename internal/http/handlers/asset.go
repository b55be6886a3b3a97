package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/substationlabs/assetview-backend/internal/http/response"
	"github.com/substationlabs/assetview-backend/internal/platform/logger"
	"github.com/substationlabs/assetview-backend/internal/services"
)

type AssetHandler struct {
	log    *logger.Logger
	assets services.AssetService
}

func NewAssetHandler(log *logger.Logger, assets services.AssetService) *AssetHandler {
	return &AssetHandler{
		log:    log.With("handler", "AssetHandler"),
		assets: assets,
	}
}

// GET /api/assets?category=equipment
func (h *AssetHandler) ListAssets(c *gin.Context) {
	records, err := h.assets.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		h.log.Error("ListAssets failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "list_assets_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"assets": records})
}

// GET /api/assets/:key
func (h *AssetHandler) GetAsset(c *gin.Context) {
	record, err := h.assets.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		status, code := statusForServiceError(err)
		response.RespondError(c, status, code, err)
		return
	}
	response.RespondOK(c, gin.H{"asset": record})
}

// PATCH /api/assets/:key/classification
func (h *AssetHandler) UpdateAssetClassification(c *gin.Context) {
	var update services.ClassificationUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	record, err := h.assets.UpdateClassification(c.Request.Context(), c.Param("key"), update)
	if err != nil {
		status, code := statusForServiceError(err)
		if status >= 500 {
			h.log.Error("UpdateAssetClassification failed", "error", err, "key", c.Param("key"))
		}
		response.RespondError(c, status, code, err)
		return
	}
	response.RespondOK(c, gin.H{"asset": record})
}

// DELETE /api/assets/:key
func (h *AssetHandler) DeleteAsset(c *gin.Context) {
	if err := h.assets.Delete(c.Request.Context(), c.Param("key")); err != nil {
		status, code := statusForServiceError(err)
		if status >= 500 {
			h.log.Error("DeleteAsset failed", "error", err, "key", c.Param("key"))
		}
		response.RespondError(c, status, code, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true})
}

// GET /api/assets/:key/files
func (h *AssetHandler) ListAssetFiles(c *gin.Context) {
	files, err := h.assets.ListFiles(c.Request.Context(), c.Param("key"))
	if err != nil {
		status, code := statusForServiceError(err)
		response.RespondError(c, status, code, err)
		return
	}
	response.RespondOK(c, gin.H{"files": files})
}
