package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"docuchat/internal/ai"
	"docuchat/internal/app"
	"docuchat/internal/transport/http/middleware"
	"docuchat/internal/transport/http/response"
)

type DocumentHandler struct {
	ingest *app.IngestService
}

func NewDocumentHandler(ingest *app.IngestService) *DocumentHandler {
	return &DocumentHandler{ingest: ingest}
}

// Upload accepts a multipart form with "file" and runs the full ingestion
// pipeline before responding.
func (h *DocumentHandler) Upload(c *gin.Context) {
	tenantID, ok := middleware.TenantID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "missing file")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to read file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to read file")
		return
	}

	contentType := strings.TrimSpace(c.PostForm("contentType"))
	if contentType == "" {
		contentType = detectContentType(file.Filename, file.Header.Get("Content-Type"))
	}

	result, err := h.ingest.Ingest(c.Request.Context(), app.IngestInput{
		TenantID:    tenantID,
		Filename:    filepath.Base(file.Filename),
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput),
			errors.Is(err, app.ErrUnsupportedType),
			errors.Is(err, app.ErrPayloadTooLarge),
			errors.Is(err, app.ErrEmptyContent),
			errors.Is(err, app.ErrExtractionFailed):
			response.Error(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, ai.ErrRateLimited):
			response.Error(c, http.StatusServiceUnavailable, "embedding provider rate limited, try again later")
		default:
			response.Error(c, http.StatusInternalServerError, "ingest failed")
		}
		return
	}

	response.Created(c, gin.H{
		"document": gin.H{
			"id":         result.Document.ID,
			"filename":   result.Document.Filename,
			"status":     result.Document.Status,
			"chunkCount": result.ChunkCount,
		},
	})
}

func (h *DocumentHandler) List(c *gin.Context) {
	tenantID, ok := middleware.TenantID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	docs, err := h.ingest.List(c.Request.Context(), tenantID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "list documents failed")
		return
	}

	response.OK(c, gin.H{"documents": docs})
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	tenantID, ok := middleware.TenantID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	docID64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || docID64 == 0 {
		response.Error(c, http.StatusBadRequest, "invalid document id")
		return
	}

	if err := h.ingest.Delete(c.Request.Context(), tenantID, uint(docID64)); err != nil {
		switch {
		case errors.Is(err, app.ErrDocumentNotFound):
			response.Error(c, http.StatusNotFound, err.Error())
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, "delete document failed")
		}
		return
	}

	response.OK(c, gin.H{"deletedDocumentId": uint(docID64)})
}

// detectContentType prefers the declared multipart type, falling back to the
// filename extension when the browser sent a generic octet-stream.
func detectContentType(filename, declared string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		return byExt
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".doc":
		return "application/msword"
	case ".md", ".txt":
		return "text/plain"
	}
	return declared
}
