package index

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/tagvault/internal/apperr"
	"github.com/starford/tagvault/internal/models"
	"github.com/starford/tagvault/internal/tags"
)

// NoteRow represents a row in the notes table. Tags holds the distinct
// normalized tags of the note.
type NoteRow struct {
	Path      string
	Title     string
	Checksum  string
	Tags      []string
	UpdatedAt time.Time
}

// tagMatchSQL selects rows whose tag_key equals ?1, or, when ?2 is true,
// lies below it in the hierarchy.
const tagMatchSQL = `(tag_key = ?1 OR (?2 AND substr(tag_key, 1, length(?1) + 1) = ?1 || '/'))`

// UpsertNote replaces a note and all of its tag occurrences within a
// transaction.
func (db *DB) UpsertNote(n NoteRow, refs []models.TagRef) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = time.Now()
	}
	_, err = tx.Exec(`
		INSERT INTO notes (path, title, checksum, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, n.Path, n.Title, n.Checksum, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM note_tags WHERE path = ?`, n.Path); err != nil {
		return fmt.Errorf("index: clear tags: %w", err)
	}
	if len(refs) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO note_tags (path, tag, tag_key, location, line) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare tag insert: %w", err)
		}
		defer stmt.Close()
		for _, r := range refs {
			if _, err := stmt.Exec(n.Path, r.Tag, tags.Normalize(r.Tag), r.Location, r.Line); err != nil {
				return fmt.Errorf("index: insert tag: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteNote removes a note; its tag rows go with it.
func (db *DB) DeleteNote(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM notes WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete note: %w", err)
	}
	return nil
}

// GetChecksum returns the stored checksum for a note, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM notes WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: checksum: %w", err)
	}
	return cs, nil
}

// GetNote returns a note row with every tag occurrence in file order.
func (db *DB) GetNote(path string) (*NoteRow, []models.TagRef, error) {
	var n NoteRow
	err := db.conn.QueryRow(`SELECT path, title, checksum, updated_at FROM notes WHERE path = ?`, path).
		Scan(&n.Path, &n.Title, &n.Checksum, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("index: note %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("index: get note: %w", err)
	}

	rows, err := db.conn.Query(`SELECT tag, tag_key, location, line FROM note_tags WHERE path = ? ORDER BY rowid`, path)
	if err != nil {
		return nil, nil, fmt.Errorf("index: note tags: %w", err)
	}
	defer rows.Close()

	var refs []models.TagRef
	seen := make(map[string]struct{})
	for rows.Next() {
		var r models.TagRef
		var key string
		if err := rows.Scan(&r.Tag, &key, &r.Location, &r.Line); err != nil {
			return nil, nil, err
		}
		refs = append(refs, r)
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			n.Tags = append(n.Tags, key)
		}
	}
	return &n, refs, rows.Err()
}

// ListNotes returns a page of notes ordered by path together with the total
// number of matching notes. A non-empty tag restricts the result to notes
// carrying that tag or one of its descendants.
func (db *DB) ListNotes(limit, offset int, tag string) ([]NoteRow, int, error) {
	where := ""
	args := []any{}
	if tag != "" {
		where = `WHERE n.path IN (SELECT path FROM note_tags WHERE ` + tagMatchSQL + `)`
		args = append(args, tags.Normalize(tag), true)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes n `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count notes: %w", err)
	}

	q := `
		SELECT n.path, n.title, n.checksum, n.updated_at,
			COALESCE((SELECT group_concat(DISTINCT t.tag_key) FROM note_tags t WHERE t.path = n.path), '')
		FROM notes n ` + where + `
		ORDER BY n.path
		LIMIT ? OFFSET ?`
	rows, err := db.conn.Query(q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list notes: %w", err)
	}
	defer rows.Close()

	var out []NoteRow
	for rows.Next() {
		var n NoteRow
		var joined string
		if err := rows.Scan(&n.Path, &n.Title, &n.Checksum, &n.UpdatedAt, &joined); err != nil {
			return nil, 0, err
		}
		if joined != "" {
			n.Tags = strings.Split(joined, ",")
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

// NotesWithTag returns the paths of notes carrying tag, optionally including
// notes that only carry descendants of it.
func (db *DB) NotesWithTag(tag string, descendants bool) ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT path FROM note_tags WHERE `+tagMatchSQL+` ORDER BY path`,
		tags.Normalize(tag), descendants)
	if err != nil {
		return nil, fmt.Errorf("index: notes with tag: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AllTags returns every normalized tag with the number of notes carrying it,
// ordered by tag.
func (db *DB) AllTags() ([]models.TagCount, error) {
	rows, err := db.conn.Query(`SELECT tag_key, count(DISTINCT path) FROM note_tags GROUP BY tag_key ORDER BY tag_key`)
	if err != nil {
		return nil, fmt.Errorf("index: all tags: %w", err)
	}
	defer rows.Close()

	var out []models.TagCount
	for rows.Next() {
		var tc models.TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// AllChecksums returns path → checksum for every indexed note.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
