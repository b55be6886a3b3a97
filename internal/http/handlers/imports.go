package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/substationlabs/assetview-backend/internal/http/response"
	"github.com/substationlabs/assetview-backend/internal/platform/logger"
	"github.com/substationlabs/assetview-backend/internal/services"
)

type ImportHandler struct {
	log          *logger.Logger
	imports      services.ImportService
	historyLimit int
}

func NewImportHandler(log *logger.Logger, imports services.ImportService, historyLimit int) *ImportHandler {
	if historyLimit <= 0 {
		historyLimit = 20
	}
	return &ImportHandler{
		log:          log.With("handler", "ImportHandler"),
		imports:      imports,
		historyLimit: historyLimit,
	}
}

// POST /api/imports
// Multipart body with the spreadsheet under "workbook" (or "file").
func (h *ImportHandler) ImportWorkbook(c *gin.Context) {
	fh, err := c.FormFile("workbook")
	if err != nil {
		fh, err = c.FormFile("file")
	}
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "no_workbook", err)
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_workbook", err)
		return
	}
	defer f.Close()

	run, err := h.imports.ImportWorkbook(c.Request.Context(), fh.Filename, f)
	if err != nil {
		h.log.Error("ImportWorkbook failed", "error", err, "filename", fh.Filename)
		// The audit row still carries the failure detail when it exists.
		response.RespondError(c, http.StatusUnprocessableEntity, "import_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"run": run})
}

// GET /api/imports?limit=20
func (h *ImportHandler) ListImportRuns(c *gin.Context) {
	limit := h.historyLimit
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := h.imports.History(c.Request.Context(), limit)
	if err != nil {
		h.log.Error("ListImportRuns failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "list_imports_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"runs": runs})
}
