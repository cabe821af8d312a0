package api

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"showdesk/internal/blob"
	"showdesk/internal/db"
	"showdesk/internal/mediaurl"
)

// Uploads not referenced by a message within this window are pruned.
const attachmentTTL = 24 * time.Hour

type UploadHandler struct {
	blobs   *blob.Service
	records *db.BlobRepository
	baseURL string
}

func NewUploadHandler(blobs *blob.Service, records *db.BlobRepository, baseURL string) *UploadHandler {
	return &UploadHandler{
		blobs:   blobs,
		records: records,
		baseURL: baseURL,
	}
}

type uploadResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
}

// POST /api/v1/uploads
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	staffID := GetStaffID(r)

	file, fileHeader, cleanup, ok := readSingleFileUpload(w, r, h.blobs.MaxUploadBytes()+(1<<20))
	if !ok {
		return
	}
	defer cleanup()
	defer file.Close()

	stored, err := h.blobs.Save(r.Context(), blob.KindChatAttachment, fileHeader.Filename, file)
	if !handleBlobSaveError(w, err) {
		return
	}

	expiresAt := time.Now().UTC().Add(attachmentTTL)
	record := &db.Blob{
		ID:           stored.ID,
		Kind:         string(stored.Kind),
		UploadedBy:   staffID,
		StoragePath:  stored.StoragePath,
		MimeType:     stored.MimeType,
		SizeBytes:    stored.SizeBytes,
		OriginalName: stored.OriginalName,
		ExpiresAt:    &expiresAt,
		CreatedAt:    stored.CreatedAt,
	}
	if err := h.records.Create(r.Context(), record); err != nil {
		_ = h.blobs.Delete(stored.StoragePath)
		slog.Error("error creating upload record", "error", err)
		internalError(w)
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		ID:       stored.ID,
		Name:     stored.OriginalName,
		MimeType: stored.MimeType,
		Size:     stored.SizeBytes,
		URL:      mediaurl.Blob(h.baseURL, stored.ID),
	})
}

func readSingleFileUpload(
	w http.ResponseWriter,
	r *http.Request,
	maxBytes int64,
) (multipart.File, *multipart.FileHeader, func(), bool) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)
	}

	err := r.ParseMultipartForm(1 << 20)
	if err != nil {
		if isBodyTooLargeError(err) {
			payloadTooLarge(w, "File exceeds maximum upload size")
		} else {
			badRequest(w, "Invalid multipart upload")
		}
		return nil, nil, func() {}, false
	}

	cleanup := func() {
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "File field 'file' is required")
		cleanup()
		return nil, nil, func() {}, false
	}

	if fileHeader == nil || strings.TrimSpace(fileHeader.Filename) == "" {
		file.Close()
		cleanup()
		badRequest(w, "File name is required")
		return nil, nil, func() {}, false
	}

	return file, fileHeader, cleanup, true
}

func handleBlobSaveError(w http.ResponseWriter, err error) bool {
	if err == nil {
		return true
	}

	if errors.Is(err, blob.ErrFileTooLarge) {
		payloadTooLarge(w, "File exceeds maximum upload size")
		return false
	}
	if errors.Is(err, blob.ErrDisallowedType) {
		badRequest(w, "Unsupported file type")
		return false
	}
	if errors.Is(err, blob.ErrExecutableFile) {
		badRequest(w, "Executable files are not allowed")
		return false
	}

	slog.Error("error saving blob", "error", err)
	internalError(w)
	return false
}

func isBodyTooLargeError(err error) bool {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "request body too large")
}
