package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tagvault/internal/noteservice"
)

// maxRequestBody bounds POST /tags bodies.
const maxRequestBody = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// notePath extracts the note path from the URL (everything after /api/notes/).
// Supports encoded slashes from OpenAPI clients (e.g. topics%2Fnote.md).
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ManageTags handles POST /api/tags.
//
//	@Summary		Add or remove tags across a batch of notes
//	@Tags			tags
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ManageTagsRequest	true	"Tag operation"
//	@Success		200		{object}	ManageTagsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tags [post]
func (h *Handler) ManageTags(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	var req ManageTagsRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	res, err := h.svc.ManageTags(r.Context(), req)
	if err != nil {
		writeError(w, "manage tags", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListTags handles GET /api/tags.
//
//	@Summary		List tags with note counts
//	@Tags			tags
//	@Produce		json
//	@Param			pattern	query		string	false	"Wildcard pattern, e.g. archive/*"
//	@Success		200		{object}	TagListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.ListTags(r.Context(), r.URL.Query().Get("pattern"))
	if err != nil {
		writeError(w, "list tags", err)
		return
	}
	writeJSON(w, http.StatusOK, TagListResponse{Tags: tags})
}

// RelatedTags handles GET /api/tags/related.
//
//	@Summary		List ancestors and descendants of a tag
//	@Tags			tags
//	@Produce		json
//	@Param			tag	query		string	true	"Tag"
//	@Success		200	{object}	TagListResponse
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tags/related [get]
func (h *Handler) RelatedTags(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")
	if tag == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'tag' is required"))
		return
	}
	tags, err := h.svc.RelatedTags(r.Context(), tag)
	if err != nil {
		writeError(w, "related tags", err)
		return
	}
	writeJSON(w, http.StatusOK, TagListResponse{Tags: tags})
}

// NotesByTag handles GET /api/tags/notes.
//
//	@Summary		List notes carrying a tag
//	@Tags			tags
//	@Produce		json
//	@Param			tag			query		string	true	"Tag"
//	@Param			descendants	query		bool	false	"Include notes tagged below the tag"
//	@Success		200			{object}	TagNotesResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tags/notes [get]
func (h *Handler) NotesByTag(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tag := q.Get("tag")
	if tag == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'tag' is required"))
		return
	}
	descendants, _ := strconv.ParseBool(q.Get("descendants"))
	paths, err := h.svc.NotesByTag(r.Context(), tag, descendants)
	if err != nil {
		writeError(w, "notes by tag", err)
		return
	}
	writeJSON(w, http.StatusOK, TagNotesResponse{Tag: tag, Notes: paths})
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes with optional pagination and tag filter
//	@Tags			notes
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag (descendants included)"
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListNotes(r.Context(), limit, offset, q.Get("tag"))
	if err != nil {
		writeError(w, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: total})
}

// GetNote handles GET /api/notes/*.
//
//	@Summary		Get a single note with its tag occurrences
//	@Tags			notes
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	NoteDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	note, err := h.svc.GetNote(r.Context(), path)
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}
