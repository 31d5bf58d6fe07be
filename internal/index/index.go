package index

import "github.com/starford/tagvault/internal/models"

// TagIndex is the read/write surface of the tag index. Consumers depend on
// this interface rather than *DB so tests can substitute it.
type TagIndex interface {
	UpsertNote(n NoteRow, refs []models.TagRef) error
	DeleteNote(path string) error
	GetChecksum(path string) (string, error)
	GetNote(path string) (*NoteRow, []models.TagRef, error)
	ListNotes(limit, offset int, tag string) ([]NoteRow, int, error)
	NotesWithTag(tag string, descendants bool) ([]string, error)
	AllTags() ([]models.TagCount, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies TagIndex at compile time.
var _ TagIndex = (*DB)(nil)
