package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/plainnote/internal/checksum"
	"github.com/starford/plainnote/internal/models"
	"github.com/starford/plainnote/internal/notes"
)

// Handler holds API route handlers.
type Handler struct {
	svc *notes.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *notes.Service) *Handler {
	return &Handler{svc: svc}
}

func noteID(r *http.Request) models.NoteIdentity {
	return models.NoteIdentity(chi.URLParam(r, "id"))
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List the notes of a directory, newest first
//	@Tags			notes
//	@Produce		json
//	@Param			dir	query		string	false	"Directory (defaults to general.path)"
//	@Success		200	{object}	NoteListResponse
//	@Failure		412	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.ListNotes(r.Context(), r.URL.Query().Get("dir"))
	if err != nil {
		writeError(w, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: snap})
}

// GetBody handles GET /api/notes/{id}/body.
//
//	@Summary		Get the body of a note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note identity"
//	@Success		200	{object}	NoteBodyResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/body [get]
func (h *Handler) GetBody(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	body, err := h.svc.GetBody(r.Context(), id)
	if err != nil {
		writeError(w, "get body", err)
		return
	}
	sum := checksum.Body(body)
	w.Header().Set("ETag", checksum.ETag(sum))
	writeJSON(w, http.StatusOK, NoteBodyResponse{Identity: id, Body: body, Checksum: sum})
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a new note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	models.NoteRecord
//	@Failure		400		{object}	errResponse
//	@Failure		500		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := h.svc.CreateNote(r.Context(), req.Title, req.Body)
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// WriteNote handles PUT /api/notes/{id}.
//
//	@Summary		Save a note, renaming it when the title changed
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Note identity"
//	@Param			body	body		WriteNoteRequest	true	"Title and body"
//	@Success		200		{object}	WriteNoteResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	WriteNoteResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) WriteNote(w http.ResponseWriter, r *http.Request) {
	var req WriteNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ok, err := h.svc.WriteNote(r.Context(), noteID(r), req.Title, req.Body)
	if err != nil {
		writeError(w, "write note", err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusConflict, WriteNoteResponse{OK: false})
		return
	}
	writeJSON(w, http.StatusOK, WriteNoteResponse{OK: true})
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id	path	string	true	"Note identity"
//	@Success		204	"Note deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteNote(r.Context(), noteID(r)); err != nil {
		writeError(w, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Settings handles GET /api/settings.
//
//	@Summary		Dump stored settings
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	map[string]any
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Settings(r.Context()))
}

// SetLinkAutoUpdate handles PUT /api/settings/link-auto-update.
//
//	@Summary		Enable or disable link rewriting on rename
//	@Tags			settings
//	@Accept			json
//	@Param			body	body	LinkAutoUpdateRequest	true	"Flag"
//	@Success		204		"Stored"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings/link-auto-update [put]
func (h *Handler) SetLinkAutoUpdate(w http.ResponseWriter, r *http.Request) {
	var req LinkAutoUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.SetAutoLinkUpdate(*req.Enabled); err != nil {
		writeError(w, "set link auto update", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OpenDirectory handles POST /api/directory.
//
//	@Summary		Switch the notes directory
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OpenDirectoryRequest	true	"Directory"
//	@Success		200		{object}	NoteListResponse
//	@Failure		412		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/directory [post]
func (h *Handler) OpenDirectory(w http.ResponseWriter, r *http.Request) {
	var req OpenDirectoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	snap, err := h.svc.OpenDirectory(r.Context(), req.Path)
	if err != nil {
		writeError(w, "open directory", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: snap})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Backlinks handles GET /api/backlinks.
//
//	@Summary		List notes linking to a title
//	@Tags			search
//	@Produce		json
//	@Param			title	query		string	true	"Target title"
//	@Success		200		{object}	BacklinksResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/backlinks [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'title' is required"))
		return
	}
	bl, err := h.svc.Backlinks(r.Context(), title)
	if err != nil {
		writeError(w, "backlinks", err)
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{Title: title, Backlinks: bl})
}
