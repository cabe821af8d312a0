package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"showdesk/internal/blob"
	"showdesk/internal/db"
)

type MediaHandler struct {
	records *db.BlobRepository
	blobs   *blob.Service
}

func NewMediaHandler(records *db.BlobRepository, blobs *blob.Service) *MediaHandler {
	return &MediaHandler{records: records, blobs: blobs}
}

// GET /media/{blobID}
func (h *MediaHandler) GetBlob(w http.ResponseWriter, r *http.Request) {
	blobID := strings.TrimSpace(chi.URLParam(r, "blobID"))
	if blobID == "" {
		notFound(w, "Media not found")
		return
	}

	record, err := h.records.GetByID(r.Context(), blobID)
	if errors.Is(err, db.ErrNotFound) {
		notFound(w, "Media not found")
		return
	}
	if err != nil {
		internalError(w)
		return
	}

	file, err := h.blobs.Open(record.StoragePath)
	if errors.Is(err, os.ErrNotExist) {
		notFound(w, "Media not found")
		return
	}
	if err != nil {
		internalError(w)
		return
	}
	defer file.Close()

	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("ETag", fmt.Sprintf("\"%s\"", record.ID))
	w.Header().Set("Content-Type", record.MimeType)

	fileName := sanitizeDispositionFilename(record.OriginalName)
	if shouldForceDownload(r) || !shouldRenderInline(record.MimeType) {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", fileName))
	} else {
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=\"%s\"", fileName))
	}

	http.ServeContent(w, r, record.OriginalName, record.CreatedAt, file)
}

func sanitizeDispositionFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "download"
	}
	name = strings.ReplaceAll(name, "\\", "")
	name = strings.ReplaceAll(name, "\"", "")
	name = strings.ReplaceAll(name, "\r", "")
	name = strings.ReplaceAll(name, "\n", "")
	if name == "" {
		return "download"
	}
	return name
}

func shouldRenderInline(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if strings.HasPrefix(mimeType, "image/") {
		return true
	}
	if strings.HasPrefix(mimeType, "video/") {
		return true
	}
	if strings.HasPrefix(mimeType, "audio/") {
		return true
	}
	if mimeType == "application/pdf" {
		return true
	}

	return false
}

func shouldForceDownload(r *http.Request) bool {
	download := strings.TrimSpace(r.URL.Query().Get("download"))
	if download == "" {
		return false
	}

	force, err := strconv.ParseBool(download)
	if err != nil {
		return false
	}

	return force
}
