package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/substationlabs/assetview-backend/internal/http/response"
	"github.com/substationlabs/assetview-backend/internal/platform/logger"
	"github.com/substationlabs/assetview-backend/internal/services"
)

const maxUploadMemory = 32 << 20

type FileHandler struct {
	log   *logger.Logger
	files services.FileService
}

func NewFileHandler(log *logger.Logger, files services.FileService) *FileHandler {
	return &FileHandler{
		log:   log.With("handler", "FileHandler"),
		files: files,
	}
}

type resolveRequest struct {
	Filename  string   `json:"filename"`
	Filenames []string `json:"filenames"`
}

// POST /api/files/resolve
// Accepts a single filename or a batch; responds per filename, never
// failing the whole request over one unresolvable name.
func (h *FileHandler) ResolveFilenames(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	names := req.Filenames
	if single := strings.TrimSpace(req.Filename); single != "" {
		names = append(names, single)
	}
	if len(names) == 0 {
		response.RespondError(c, http.StatusBadRequest, "no_filenames", nil)
		return
	}

	results := h.files.ResolveBatch(c.Request.Context(), names)
	response.RespondOK(c, gin.H{"results": results})
}

// POST /api/files
func (h *FileHandler) UploadFiles(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxUploadMemory); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
		return
	}
	form := c.Request.MultipartForm
	if form == nil || len(form.File["files"]) == 0 {
		response.RespondError(c, http.StatusBadRequest, "no_files", nil)
		return
	}

	uploads := make([]services.FileUpload, 0, len(form.File["files"]))
	for _, fh := range form.File["files"] {
		fh := fh
		uploads = append(uploads, services.FileUpload{
			OriginalName: fh.Filename,
			SizeBytes:    fh.Size,
			Reader: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}

	results, err := h.files.Upload(c.Request.Context(), uploads)
	if err != nil {
		h.log.Error("UploadFiles failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "upload_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"results": results})
}

type renameRequest struct {
	Filename string `json:"filename"`
}

// PATCH /api/files/:id/rename
func (h *FileHandler) RenameFile(c *gin.Context) {
	fileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_file_id", err)
		return
	}

	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	file, err := h.files.Rename(c.Request.Context(), fileID, req.Filename)
	if err != nil {
		status, code := statusForServiceError(err)
		if status >= 500 {
			h.log.Error("RenameFile failed", "error", err, "file_id", fileID)
		}
		response.RespondError(c, status, code, err)
		return
	}
	response.RespondOK(c, gin.H{"file": file})
}

// DELETE /api/files/:id
func (h *FileHandler) DeleteFile(c *gin.Context) {
	fileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_file_id", err)
		return
	}

	if err := h.files.Delete(c.Request.Context(), fileID); err != nil {
		status, code := statusForServiceError(err)
		if status >= 500 {
			h.log.Error("DeleteFile failed", "error", err, "file_id", fileID)
		}
		response.RespondError(c, status, code, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true})
}
