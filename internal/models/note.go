// Package models defines the domain types shared by the index, the service
// layer and the transports.
package models

import "time"

// Note is a vault note as returned to clients.
type Note struct {
	Path        string         `json:"path"`
	Title       string         `json:"title,omitempty"`
	Body        string         `json:"body"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Tags        []TagRef       `json:"tags,omitempty"`
	Checksum    string         `json:"checksum"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Title     string    `json:"title,omitempty"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
	Tags      []string  `json:"tags,omitempty"`
}

// TagRef is one occurrence of a tag in a note.
type TagRef struct {
	Tag      string `json:"tag"`
	Location string `json:"location"` // "frontmatter" or "content"
	Line     int    `json:"line,omitempty"`
}

// TagCount is a tag with the number of notes that carry it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}
