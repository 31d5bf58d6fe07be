package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tagvault/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Tag operations and queries.
	r.Post("/tags", h.ManageTags)
	r.Get("/tags", h.ListTags)
	r.Get("/tags/related", h.RelatedTags)
	r.Get("/tags/notes", h.NotesByTag)

	// Notes (read-only).
	r.Get("/notes", h.ListNotes)
	r.Get("/notes/*", h.GetNote)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
