package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/plainnote/internal/notes"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *notes.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)
	ah := NewAttachmentHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/{id}/body", h.GetBody)
	r.Put("/notes/{id}", h.WriteNote)
	r.Delete("/notes/{id}", h.DeleteNote)

	r.Get("/settings", h.Settings)
	r.Put("/settings/link-auto-update", h.SetLinkAutoUpdate)
	r.Post("/directory", h.OpenDirectory)

	r.Get("/search", h.Search)
	r.Get("/backlinks", h.Backlinks)

	r.Post("/attachments", ah.Upload)
	r.Get("/attachments/{filename}", ah.ServeFile)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
