package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/substationlabs/assetview-backend/internal/http/response"
	"github.com/substationlabs/assetview-backend/internal/platform/logger"
	"github.com/substationlabs/assetview-backend/internal/services"
)

type HierarchyHandler struct {
	log       *logger.Logger
	hierarchy services.HierarchyService
}

func NewHierarchyHandler(log *logger.Logger, hierarchy services.HierarchyService) *HierarchyHandler {
	return &HierarchyHandler{
		log:       log.With("handler", "HierarchyHandler"),
		hierarchy: hierarchy,
	}
}

// GET /api/hierarchy?refresh=1
func (h *HierarchyHandler) GetHierarchy(c *gin.Context) {
	refresh := false
	switch strings.ToLower(strings.TrimSpace(c.Query("refresh"))) {
	case "1", "true", "yes":
		refresh = true
	}

	result, err := h.hierarchy.Get(c.Request.Context(), refresh)
	if err != nil {
		h.log.Error("GetHierarchy failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "build_hierarchy_failed", err)
		return
	}
	response.RespondOK(c, result)
}

// GET /api/hierarchy/stats
func (h *HierarchyHandler) GetHierarchyStats(c *gin.Context) {
	stats, err := h.hierarchy.Stats(c.Request.Context())
	if err != nil {
		h.log.Error("GetHierarchyStats failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "hierarchy_stats_failed", err)
		return
	}
	response.RespondOK(c, stats)
}

// GET /api/hierarchy/orphans
func (h *HierarchyHandler) ListOrphans(c *gin.Context) {
	orphans, err := h.hierarchy.Orphans(c.Request.Context())
	if err != nil {
		h.log.Error("ListOrphans failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "list_orphans_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"orphans": orphans})
}
