package api

import (
	"github.com/starford/tagvault/internal/batch"
	"github.com/starford/tagvault/internal/models"
	"github.com/starford/tagvault/internal/noteservice"
)

// ManageTagsRequest is the request body for POST /tags.
type ManageTagsRequest = batch.Request

// ManageTagsResponse is the outcome of a tag operation.
type ManageTagsResponse = noteservice.TagResult

// TagListResponse wraps tag listings.
type TagListResponse struct {
	Tags []models.TagCount `json:"tags" validate:"required"`
}

// TagNotesResponse lists the notes carrying a tag.
type TagNotesResponse struct {
	Tag   string   `json:"tag" example:"project" validate:"required"`
	Notes []string `json:"notes" validate:"required"`
}

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []models.NoteMetadata `json:"notes" validate:"required"`
	Total int                   `json:"total" example:"42" validate:"required"`
}

// NoteDetail is the full note response type.
type NoteDetail = models.Note
