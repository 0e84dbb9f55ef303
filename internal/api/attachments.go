package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/starford/plainnote/internal/notes"
)

const maxUploadBytes = 50 << 20 // 50 MB

// AttachmentHandler copies files into the notes directory and serves them back.
type AttachmentHandler struct {
	svc *notes.Service
}

// NewAttachmentHandler creates a handler bound to the notes service.
func NewAttachmentHandler(svc *notes.Service) *AttachmentHandler {
	return &AttachmentHandler{svc: svc}
}

// ServeFile handles GET /api/attachments/{filename}.
func (h *AttachmentHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	store, err := h.svc.Store()
	if err != nil {
		writeError(w, "serve attachment", err)
		return
	}
	name := chi.URLParam(r, "filename")
	if name == "" || name != filepath.Base(name) || name == ".." {
		http.Error(w, "invalid filename", http.StatusBadRequest)
		return
	}
	abs := filepath.Join(store.Root(), name)
	if info, statErr := os.Stat(abs); statErr != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// Upload handles POST /api/attachments (multipart/form-data, field "file").
//
//	@Summary		Copy a file into the notes directory
//	@Tags			attachments
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"File to copy"
//	@Success		201		{object}	AttachmentUploadResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/attachments [post]
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	path, written, err := h.svc.CopyAttachment(r.Context(), header.Filename, file)
	if err != nil {
		writeError(w, "upload attachment", err)
		return
	}

	name := filepath.Base(path)
	writeJSON(w, http.StatusCreated, AttachmentUploadResponse{
		Filename: name,
		Size:     written,
		URL:      "/api/attachments/" + name,
	})
}
